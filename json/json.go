// Package json defines the JSON wire format for tutor sessions and the
// frames streamed to web clients.
package json

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fwojciec/tutor"
)

// Session is the v1 wire format of a session snapshot.
type Session struct {
	Version   int       `json:"version"`
	ID        string    `json:"id"`
	State     string    `json:"state"`
	Pending   bool      `json:"pending"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Usage     usageDTO  `json:"usage"`
	Turns     []turnDTO `json:"turns"`
}

// NewSession takes a snapshot of s.
func NewSession(s *tutor.Session) Session {
	turns := s.Transcript()
	dto := Session{
		Version:   1,
		ID:        s.ID,
		State:     s.State().String(),
		Pending:   s.Pending(),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt(),
		Usage:     marshalUsage(s.Usage()),
		Turns:     make([]turnDTO, len(turns)),
	}
	for i, t := range turns {
		dto.Turns[i] = marshalTurn(t)
	}
	return dto
}

// Transcript returns the turns of the snapshot.
func (s Session) Transcript() ([]tutor.Turn, error) {
	turns := make([]tutor.Turn, len(s.Turns))
	for i, dto := range s.Turns {
		t, err := unmarshalTurn(dto)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", i, err)
		}
		turns[i] = t
	}
	return turns, nil
}

// MarshalSession serializes a snapshot of s in v1 format.
func MarshalSession(s *tutor.Session) ([]byte, error) {
	return json.MarshalIndent(NewSession(s), "", "  ")
}

// UnmarshalSession deserializes a v1 session snapshot.
func UnmarshalSession(data []byte) (Session, error) {
	var dto Session
	if err := json.Unmarshal(data, &dto); err != nil {
		return Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	if dto.Version != 1 {
		return Session{}, fmt.Errorf("unsupported session version: %d", dto.Version)
	}
	if _, err := dto.Transcript(); err != nil {
		return Session{}, err
	}
	return dto, nil
}
