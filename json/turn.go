package json

import (
	"fmt"
	"time"

	"github.com/fwojciec/tutor"
)

// turnDTO is the JSON representation of a Turn.
type turnDTO struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func marshalTurn(t tutor.Turn) turnDTO {
	return turnDTO{Speaker: string(t.Speaker), Text: t.Text, Timestamp: t.Timestamp}
}

func unmarshalTurn(dto turnDTO) (tutor.Turn, error) {
	switch sp := tutor.Speaker(dto.Speaker); sp {
	case tutor.SpeakerStudent, tutor.SpeakerAssistant:
		return tutor.Turn{Speaker: sp, Text: dto.Text, Timestamp: dto.Timestamp}, nil
	default:
		return tutor.Turn{}, fmt.Errorf("unknown speaker: %q", dto.Speaker)
	}
}
