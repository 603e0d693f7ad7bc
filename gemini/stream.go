package gemini

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"

	"github.com/fwojciec/tutor"
	"google.golang.org/genai"
)

// stream implements [tutor.Stream] by wrapping the genai SDK's streaming
// iterator. Each chunk's visible text becomes one EventTextDelta; thought
// parts are skipped.
type stream struct {
	ctx   context.Context
	pull  func() (*genai.GenerateContentResponse, error, bool)
	stop  func()
	state tutor.StreamState
	text  strings.Builder
	reply tutor.Reply
	err   error
}

// Interface compliance check.
var _ tutor.Stream = (*stream)(nil)

func newStream(ctx context.Context, seq iter.Seq2[*genai.GenerateContentResponse, error]) *stream {
	next, stop := iter.Pull2(seq)
	return &stream{
		ctx:   ctx,
		pull:  next,
		stop:  stop,
		state: tutor.StreamStateNew,
	}
}

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
		resp, err, ok := s.pull()
		if !ok {
			s.state = tutor.StreamStateComplete
			if s.reply.StopReason == "" {
				s.reply.StopReason = tutor.StopEndTurn
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, s.fail(err)
		}
		if delta := s.absorb(resp); delta != "" {
			s.state = tutor.StreamStateStreaming
			s.text.WriteString(delta)
			return tutor.EventTextDelta{Delta: delta}, nil
		}
	}
}

// absorb records usage and finish reason from resp and returns its text.
func (s *stream) absorb(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	if u := resp.UsageMetadata; u != nil {
		s.reply.Usage = tutor.Usage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
		}
	}
	if pf := resp.PromptFeedback; pf != nil && pf.BlockReason != "" {
		s.reply.StopReason = tutor.StopSafety
		s.reply.RawStopReason = string(pf.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return ""
	}
	cand := resp.Candidates[0]
	if cand.FinishReason != "" && cand.FinishReason != genai.FinishReasonUnspecified {
		s.reply.StopReason = mapFinishReason(cand.FinishReason)
		s.reply.RawStopReason = string(cand.FinishReason)
	}
	if cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

func (s *stream) fail(err error) error {
	s.state = tutor.StreamStateError
	s.reply.StopReason = tutor.StopError
	if s.ctx.Err() != nil || errors.Is(err, context.Canceled) {
		s.reply.StopReason = tutor.StopAborted
	}
	s.err = classifyError(err)
	return s.err
}

func (s *stream) State() tutor.StreamState {
	return s.state
}

func (s *stream) Message() (tutor.Reply, error) {
	if s.state == tutor.StreamStateNew {
		return tutor.Reply{}, tutor.ErrStreamNotReady
	}
	reply := s.reply
	reply.Text = s.text.String()
	return reply, nil
}

func (s *stream) Close() error {
	if s.state != tutor.StreamStateComplete && s.state != tutor.StreamStateError {
		s.state = tutor.StreamStateClosed
		s.reply.StopReason = tutor.StopAborted
		s.reply.RawStopReason = "aborted"
	}
	s.stop()
	return nil
}

func mapFinishReason(r genai.FinishReason) tutor.StopReason {
	switch r {
	case genai.FinishReasonStop:
		return tutor.StopEndTurn
	case genai.FinishReasonMaxTokens:
		return tutor.StopLength
	case genai.FinishReasonSafety, genai.FinishReasonRecitation,
		genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent,
		genai.FinishReasonSPII:
		return tutor.StopSafety
	default:
		return tutor.StopUnknown
	}
}
