package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/tutor"
)

// stream implements [tutor.Stream] by parsing SSE events from an HTTP response body.
type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	ctx     context.Context
	state   tutor.StreamState
	text    strings.Builder
	reply   tutor.Reply
	err     error // terminal error, if any
}

// Interface compliance check.
var _ tutor.Stream = (*stream)(nil)

func newStream(ctx context.Context, body io.ReadCloser) *stream {
	return &stream{
		body:    body,
		scanner: bufio.NewScanner(body),
		ctx:     ctx,
		state:   tutor.StreamStateNew,
	}
}

// Next reads the next text delta from the SSE stream.
// Returns io.EOF when the stream completes normally.
func (s *stream) Next() (tutor.Event, error) {
	switch s.state {
	case tutor.StreamStateComplete:
		return nil, io.EOF
	case tutor.StreamStateError:
		return nil, s.err
	case tutor.StreamStateClosed:
		return nil, tutor.ErrStreamClosed
	}

	for {
		eventType, data, err := s.readSSEEvent()
		if err != nil {
			s.terminate(err)
			return nil, s.err
		}

		s.state = tutor.StreamStateStreaming

		evt, err := s.processEvent(eventType, data)
		if err != nil {
			s.terminate(err)
			return nil, s.err
		}

		if s.state == tutor.StreamStateComplete {
			return nil, io.EOF
		}
		if evt != nil {
			return evt, nil
		}
		// ping, message_start, block boundaries: keep reading.
	}
}

// State returns the current stream state.
func (s *stream) State() tutor.StreamState {
	return s.state
}

// Message returns the assembled Reply.
func (s *stream) Message() (tutor.Reply, error) {
	if s.state == tutor.StreamStateNew {
		return tutor.Reply{}, tutor.ErrStreamNotReady
	}
	reply := s.reply
	reply.Text = s.text.String()
	return reply, nil
}

// Close closes the underlying HTTP response body.
func (s *stream) Close() error {
	if s.state != tutor.StreamStateComplete && s.state != tutor.StreamStateError {
		s.state = tutor.StreamStateClosed
		s.reply.StopReason = tutor.StopAborted
		s.reply.RawStopReason = "aborted"
	}
	return s.body.Close()
}

// terminate records a terminal error and sets the appropriate state and stop reason.
func (s *stream) terminate(err error) {
	s.state = tutor.StreamStateError
	if err == io.EOF {
		// message_stop sets StreamStateComplete before we get here, so a
		// raw EOF means the connection dropped mid-reply.
		err = fmt.Errorf("anthropic: unexpected end of stream: %w", tutor.ErrTransient)
	} else if !isCategorized(err) {
		err = fmt.Errorf("%w: %w", tutor.ErrTransient, err)
	}
	s.err = err
	if s.ctx.Err() != nil {
		s.reply.StopReason = tutor.StopAborted
		s.reply.RawStopReason = "aborted"
	} else {
		s.reply.StopReason = tutor.StopError
		s.reply.RawStopReason = "error"
	}
}

func isCategorized(err error) bool {
	for _, sentinel := range []error{tutor.ErrRateLimited, tutor.ErrModelUnavailable, tutor.ErrConfiguration, tutor.ErrTransient} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// readSSEEvent reads lines until a complete SSE event is assembled.
// Returns the event type and the data payload.
func (s *stream) readSSEEvent() (string, string, error) {
	var eventType string
	var dataBuf strings.Builder

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			if dataBuf.Len() > 0 {
				return eventType, dataBuf.String(), nil
			}
			continue
		}

		if v, ok := strings.CutPrefix(line, "event: "); ok {
			eventType = v
		} else if v, ok := strings.CutPrefix(line, "data: "); ok {
			if dataBuf.Len() > 0 {
				dataBuf.WriteByte('\n')
			}
			dataBuf.WriteString(v)
		}
		// Comments (lines starting with ':') and unknown fields are ignored.
	}

	if err := s.scanner.Err(); err != nil {
		return "", "", fmt.Errorf("anthropic: %w", err)
	}
	if dataBuf.Len() > 0 {
		return eventType, dataBuf.String(), nil
	}
	return "", "", io.EOF
}

// processEvent maps an SSE event to a tutor.Event. Returns a nil event for
// everything except text deltas.
func (s *stream) processEvent(eventType, data string) (tutor.Event, error) {
	switch eventType {
	case "message_start":
		var evt sseMessageStart
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			return nil, fmt.Errorf("anthropic: failed to parse message_start: %w", err)
		}
		s.reply.Usage.InputTokens = evt.Message.Usage.InputTokens
		return nil, nil
	case "content_block_delta":
		var evt sseContentBlockDelta
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			return nil, fmt.Errorf("anthropic: failed to parse content_block_delta: %w", err)
		}
		if evt.Delta.Type != "text_delta" || evt.Delta.Text == "" {
			return nil, nil
		}
		s.text.WriteString(evt.Delta.Text)
		return tutor.EventTextDelta{Delta: evt.Delta.Text}, nil
	case "message_delta":
		var evt sseMessageDelta
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			return nil, fmt.Errorf("anthropic: failed to parse message_delta: %w", err)
		}
		s.reply.Usage.OutputTokens = evt.Usage.OutputTokens
		if evt.Delta.StopReason != nil {
			s.reply.RawStopReason = *evt.Delta.StopReason
			s.reply.StopReason = mapStopReason(*evt.Delta.StopReason)
		}
		return nil, nil
	case "message_stop":
		s.state = tutor.StreamStateComplete
		return nil, nil
	case "error":
		var evt apiError
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			return nil, fmt.Errorf("anthropic: failed to parse error event: %w", err)
		}
		return nil, fmt.Errorf("anthropic: %s: %s: %w", evt.Error.Type, evt.Error.Message, category(0, evt.Error.Type))
	default:
		// ping, content_block_start/stop and unknown event types.
		return nil, nil
	}
}

func mapStopReason(raw string) tutor.StopReason {
	switch raw {
	case "end_turn", "stop_sequence":
		return tutor.StopEndTurn
	case "max_tokens":
		return tutor.StopLength
	case "refusal":
		return tutor.StopSafety
	default:
		return tutor.StopUnknown
	}
}
