package tutor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateUninitialized State = iota
	StateActive
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Session owns one conversation: its transcript and the context forwarded
// to the provider on every request. A Session is safe for concurrent use
// but serves at most one request at a time; overlapping calls fail with
// ErrBusy.
type Session struct {
	ID        string
	CreatedAt time.Time

	provider Provider
	config   Config

	mu        sync.Mutex
	state     State
	turns     []Turn
	opened    bool // the first turn answers the hidden opening prompt
	inFlight  bool
	updatedAt time.Time
	usage     Usage
}

// NewSession creates an uninitialized session. It does not contact the
// provider; the first Initialize or Submit does.
func NewSession(provider Provider, config Config) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		provider:  provider,
		config:    config,
		updatedAt: now,
	}
}

// SubmitOption configures a single Initialize, Submit or Retry call.
type SubmitOption func(*submitConfig)

type submitConfig struct {
	onEvent func(Event)
}

// WithEventHandler sets a callback that receives each streaming event while
// a reply is generated. If nil or not set, events are silently discarded.
// The handler runs on the caller's goroutine and must not call back into
// the session.
func WithEventHandler(h func(Event)) SubmitOption {
	return func(c *submitConfig) {
		c.onEvent = h
	}
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns a copy of the turns recorded so far.
func (s *Session) Transcript() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Pending reports whether the last turn is a student turn still waiting
// for an answer. Retry resends it.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked()
}

// Running reports whether a request is in flight.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// UpdatedAt returns the time of the last transcript change.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Usage returns the tokens consumed by all successful replies.
func (s *Session) Usage() Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// Initialize validates the configuration, verifies the credential and model
// when the provider supports it, and requests the opening turn if the
// configuration asks for one. On failure the session stays uninitialized
// with an empty transcript. Initializing an active session is a no-op.
func (s *Session) Initialize(ctx context.Context, opts ...SubmitOption) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()
	return s.initialize(ctx, newSubmitConfig(opts))
}

// Submit records text as a student turn, sends the conversation to the
// provider and returns the complete assistant reply. The student turn is
// kept even when the reply fails; only the assistant turn depends on
// success. An uninitialized session is initialized first, and nothing is
// recorded if that fails.
func (s *Session) Submit(ctx context.Context, text string, opts ...SubmitOption) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %w", ErrEmptyInput, ErrValidation)
	}
	if err := s.acquire(); err != nil {
		return "", err
	}
	defer s.release()

	cfg := newSubmitConfig(opts)
	if err := s.initialize(ctx, cfg); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.appendLocked(StudentTurn(text))
	turns := s.contextLocked()
	s.mu.Unlock()

	return s.answer(ctx, turns, cfg)
}

// Retry resends the unanswered student turn left behind by a failed
// Submit. It fails with ErrNothingToRetry when no turn is pending.
func (s *Session) Retry(ctx context.Context, opts ...SubmitOption) (string, error) {
	if err := s.acquire(); err != nil {
		return "", err
	}
	defer s.release()

	s.mu.Lock()
	if !s.pendingLocked() {
		s.mu.Unlock()
		return "", ErrNothingToRetry
	}
	turns := s.contextLocked()
	s.mu.Unlock()

	return s.answer(ctx, turns, newSubmitConfig(opts))
}

func newSubmitConfig(opts []SubmitOption) *submitConfig {
	var cfg submitConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

func (s *Session) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrBusy
	}
	s.inFlight = true
	return nil
}

func (s *Session) release() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

// initialize must be called with the in-flight guard held.
func (s *Session) initialize(ctx context.Context, cfg *submitConfig) error {
	if s.State() == StateActive {
		return nil
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	if v, ok := s.provider.(Verifier); ok {
		if err := v.Verify(ctx, s.config.Model); err != nil {
			return initError(err)
		}
	}

	var opening *Reply
	if s.config.Opening {
		prompt := Turn{Speaker: SpeakerStudent, Text: s.config.openingPrompt()}
		reply, err := s.complete(ctx, []Turn{prompt}, cfg)
		if err != nil {
			return initError(err)
		}
		opening = &reply
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if opening != nil {
		s.appendLocked(AssistantTurn(opening.Text))
		s.usage = s.usage.Add(opening.Usage)
	}
	s.opened = opening != nil
	s.state = StateActive
	return nil
}

// initError maps failures during initialization onto the categories a
// caller can act on: quota problems become ErrQuota and an unservable
// model becomes ErrConfiguration.
func initError(err error) error {
	switch {
	case errors.Is(err, ErrRateLimited) && !errors.Is(err, ErrQuota):
		return fmt.Errorf("initialize: %w: %w", ErrQuota, err)
	case errors.Is(err, ErrModelUnavailable):
		return fmt.Errorf("initialize: %w: %w", ErrConfiguration, err)
	default:
		return fmt.Errorf("initialize: %w", err)
	}
}

// answer completes turns and records the reply as an assistant turn.
func (s *Session) answer(ctx context.Context, turns []Turn, cfg *submitConfig) (string, error) {
	reply, err := s.complete(ctx, turns, cfg)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.appendLocked(AssistantTurn(reply.Text))
	s.usage = s.usage.Add(reply.Usage)
	s.mu.Unlock()
	return reply.Text, nil
}

// complete sends one request and drains the stream. Partial text from a
// failed stream is discarded.
func (s *Session) complete(ctx context.Context, turns []Turn, cfg *submitConfig) (Reply, error) {
	if err := ctx.Err(); err != nil {
		return Reply{}, transient(err)
	}

	req := Request{
		Model:        s.config.Model,
		SystemPrompt: s.config.Preamble,
		Turns:        turns,
		MaxTokens:    s.config.MaxOutputTokens,
		Temperature:  s.config.Temperature,
	}
	if err := req.Validate(); err != nil {
		return Reply{}, err
	}

	stream, err := s.provider.Stream(ctx, req)
	if err != nil {
		return Reply{}, transient(err)
	}
	defer stream.Close()

	for {
		evt, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Reply{}, transient(err)
		}
		if cfg.onEvent != nil {
			cfg.onEvent(evt)
		}
	}

	reply, err := stream.Message()
	if err != nil {
		return Reply{}, transient(err)
	}
	if strings.TrimSpace(reply.Text) == "" {
		return Reply{}, fmt.Errorf("empty reply (stop reason %q): %w", reply.StopReason, ErrTransient)
	}
	return reply, nil
}

func (s *Session) appendLocked(t Turn) {
	s.turns = append(s.turns, t)
	s.updatedAt = time.Now()
}

func (s *Session) pendingLocked() bool {
	n := len(s.turns)
	return n > 0 && s.turns[n-1].Speaker == SpeakerStudent
}

// contextLocked returns the turns forwarded to the provider: the hidden
// opening prompt, when the session opened with one, followed by the
// transcript.
func (s *Session) contextLocked() []Turn {
	turns := make([]Turn, 0, len(s.turns)+1)
	if s.opened {
		turns = append(turns, Turn{Speaker: SpeakerStudent, Text: s.config.openingPrompt()})
	}
	return append(turns, s.turns...)
}
