package json

import "github.com/fwojciec/tutor"

// Frame types.
const (
	FrameDelta = "delta"
	FrameReply = "reply"
	FrameError = "error"
)

// Frame is one message streamed to a web client over SSE or a websocket.
type Frame struct {
	Type  string `json:"type"`
	Delta string `json:"delta,omitempty"`
	Text  string `json:"text,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Error is the JSON body of a failed request.
type Error struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Hint      string `json:"hint,omitempty"`
	Retryable bool   `json:"retryable"`
}

// NewError describes err for a client.
func NewError(err error) *Error {
	kind := tutor.Classify(err)
	return &Error{
		Kind:      kind.String(),
		Message:   err.Error(),
		Hint:      kind.Hint(),
		Retryable: kind.Retryable(),
	}
}

// EventFrame converts a streaming event. It returns false for events that
// clients do not see.
func EventFrame(evt tutor.Event) (Frame, bool) {
	switch e := evt.(type) {
	case tutor.EventTextDelta:
		return Frame{Type: FrameDelta, Delta: e.Delta}, true
	default:
		return Frame{}, false
	}
}

// ReplyFrame carries a complete assistant reply.
func ReplyFrame(text string) Frame {
	return Frame{Type: FrameReply, Text: text}
}

// ErrorFrame carries a failed request.
func ErrorFrame(err error) Frame {
	return Frame{Type: FrameError, Error: NewError(err)}
}

// Message is the body a client sends with a student line. Over a
// websocket, Retry asks to resend the pending line instead.
type Message struct {
	Text  string `json:"text"`
	Retry bool   `json:"retry,omitempty"`
}
