package mock

import (
	"io"
	"strings"

	"github.com/fwojciec/tutor"
)

// Interface compliance check.
var _ tutor.Stream = (*Stream)(nil)

// Stream is a test double for tutor.Stream.
// Set the function fields for the methods you need. NextFn and MessageFn
// panic when nil to catch missing setup. CloseFn and StateFn are nil-safe
// (no-op and zero value) because callers commonly defer stream.Close()
// and these methods rarely need custom behavior.
type Stream struct {
	NextFn    func() (tutor.Event, error)
	StateFn   func() tutor.StreamState
	MessageFn func() (tutor.Reply, error)
	CloseFn   func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (tutor.Event, error) {
	return s.NextFn()
}

// State delegates to StateFn. Returns StreamStateNew when StateFn is nil.
func (s *Stream) State() tutor.StreamState {
	if s.StateFn == nil {
		return tutor.StreamStateNew
	}
	return s.StateFn()
}

// Message delegates to MessageFn.
func (s *Stream) Message() (tutor.Reply, error) {
	return s.MessageFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// TextStream returns a Stream that emits one EventTextDelta per chunk and
// then completes with the concatenated text.
func TextStream(chunks ...string) *Stream {
	return FailingStream(nil, chunks...)
}

// FailingStream returns a Stream that emits the chunks and then fails with
// err. A nil err completes normally.
func FailingStream(err error, chunks ...string) *Stream {
	var (
		i     int
		text  strings.Builder
		state = tutor.StreamStateNew
	)
	return &Stream{
		NextFn: func() (tutor.Event, error) {
			if i < len(chunks) {
				c := chunks[i]
				i++
				text.WriteString(c)
				state = tutor.StreamStateStreaming
				return tutor.EventTextDelta{Delta: c}, nil
			}
			if err != nil {
				state = tutor.StreamStateError
				return nil, err
			}
			state = tutor.StreamStateComplete
			return nil, io.EOF
		},
		StateFn: func() tutor.StreamState { return state },
		MessageFn: func() (tutor.Reply, error) {
			if state == tutor.StreamStateNew {
				return tutor.Reply{}, tutor.ErrStreamNotReady
			}
			reply := tutor.Reply{Text: text.String(), StopReason: tutor.StopEndTurn}
			if state == tutor.StreamStateError {
				reply.StopReason = tutor.StopError
			}
			return reply, nil
		},
	}
}
