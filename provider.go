package tutor

import "context"

// StreamState indicates the current state of a Stream.
type StreamState int

const (
	StreamStateNew       StreamState = iota // Before Next() is ever called.
	StreamStateStreaming                    // Mid-stream, receiving deltas.
	StreamStateComplete                     // Next() returned io.EOF.
	StreamStateError                        // Next() returned non-EOF error.
	StreamStateClosed                       // Close() called before terminal state.
)

// Stream uses a pull-based iterator pattern. Cancellation flows through the
// context passed to Provider.Stream().
//
// Message() returns the assembled Reply. Behavior by stream state:
//   - StreamStateComplete: complete reply, nil error.
//   - StreamStateError: partial reply, nil error. StopReason is StopError
//     for transport/protocol failures, StopAborted for context cancellation.
//   - StreamStateStreaming: partial reply, nil error.
//   - StreamStateNew: zero-value reply, non-nil error.
//   - StreamStateClosed: partial reply with StopReason = StopAborted.
type Stream interface {
	Next() (Event, error)
	State() StreamState
	Message() (Reply, error)
	Close() error
}

// Provider is the completion service a Session talks to. Errors returned
// by Stream, Next and Verify should wrap one of ErrConfiguration,
// ErrRateLimited, ErrModelUnavailable or ErrTransient.
type Provider interface {
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Verifier is implemented by providers that can check the credential and
// model identifier before the first completion request.
type Verifier interface {
	Verify(ctx context.Context, model string) error
}

// Request carries the conversation context and generation parameters.
// The provider uses its own defaults when fields are zero/nil.
type Request struct {
	Model        string // model ID, provider-specific; empty = provider default
	SystemPrompt string
	Turns        []Turn
	MaxTokens    int      // 0 = provider default
	Temperature  *float64 // nil = provider default
}

// Reply is one assembled assistant response.
type Reply struct {
	Text          string
	StopReason    StopReason
	RawStopReason string
	Usage         Usage
}
