// Package ark implements [tutor.Provider] for Volcengine Ark models.
//
// It drives an eino chat model (github.com/cloudwego/eino-ext/components/model/ark)
// and adapts eino's push-style StreamReader to the pull-based [tutor.Stream].
// Ark reports failures as text, so errors are classified by their message.
package ark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	einoark "github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/fwojciec/tutor"
)

const (
	defaultBaseURL   = "https://ark.cn-beijing.volces.com/api/v3"
	defaultRegion    = "cn-beijing"
	defaultMaxTokens = 2048
)

// Interface compliance check.
var _ tutor.Provider = (*Client)(nil)

// Client implements [tutor.Provider] on top of an eino chat model.
type Client struct {
	chat  model.BaseChatModel
	model string
}

// Config holds Ark connection settings.
type Config struct {
	APIKey  string
	Model   string // endpoint or model ID
	BaseURL string
	Region  string
}

// New creates a Client backed by the eino Ark chat model.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ark: API key is empty: %w", tutor.ErrConfiguration)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	cm, err := einoark.NewChatModel(ctx, &einoark.ChatModelConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Region:  cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("ark: %w: %w", tutor.ErrConfiguration, err)
	}
	return NewWithChatModel(cm, cfg.Model), nil
}

// NewWithChatModel wraps any eino chat model. modelName is reported in
// errors only; the chat model decides which model serves the request.
func NewWithChatModel(cm model.BaseChatModel, modelName string) *Client {
	return &Client{chat: cm, model: modelName}
}

// Stream converts the request to eino messages and starts a streaming
// generation.
func (c *Client) Stream(ctx context.Context, req tutor.Request) (tutor.Stream, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	opts := []model.Option{model.WithMaxTokens(maxTokens)}
	if req.Temperature != nil {
		opts = append(opts, model.WithTemperature(float32(*req.Temperature)))
	}
	if req.Model != "" {
		opts = append(opts, model.WithModel(req.Model))
	}

	sr, err := c.chat.Stream(ctx, ConvertTurns(req.SystemPrompt, req.Turns), opts...)
	if err != nil {
		return nil, classifyError(err)
	}
	return newStream(ctx, sr), nil
}

// ConvertTurns builds the eino message list: the preamble as a system
// message followed by one message per turn.
func ConvertTurns(system string, turns []tutor.Turn) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(turns)+1)
	if system != "" {
		msgs = append(msgs, schema.SystemMessage(system))
	}
	for _, t := range turns {
		if t.Speaker == tutor.SpeakerAssistant {
			msgs = append(msgs, schema.AssistantMessage(t.Text, nil))
			continue
		}
		msgs = append(msgs, schema.UserMessage(t.Text))
	}
	return msgs
}

// classifyError maps Ark error text onto tutor failure categories.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("ark: %w: %w", tutor.ErrTransient, err)
	}
	msg := err.Error()
	switch {
	case containsAny(msg, "429", "RateLimit", "QuotaExceeded", "TooManyRequests"):
		return fmt.Errorf("ark: %w: %w", tutor.ErrRateLimited, err)
	case containsAny(msg, "404", "ModelNotOpen", "InvalidEndpointOrModel", "NotFound"):
		return fmt.Errorf("ark: %w: %w", tutor.ErrModelUnavailable, err)
	case containsAny(msg, "401", "403", "AuthenticationError", "AccessDenied", "InvalidApiKey"):
		return fmt.Errorf("ark: %w: %w", tutor.ErrConfiguration, err)
	default:
		return fmt.Errorf("ark: %w: %w", tutor.ErrTransient, err)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// stream adapts an eino StreamReader to [tutor.Stream].
type stream struct {
	ctx   context.Context
	sr    *schema.StreamReader[*schema.Message]
	state tutor.StreamState
	text  strings.Builder
	reply tutor.Reply
	err   error
}

var _ tutor.Stream = (*stream)(nil)

func newStream(ctx context.Context, sr *schema.StreamReader[*schema.Message]) *stream {
	return &stream{ctx: ctx, sr: sr, state: tutor.StreamStateNew}
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
		chunk, err := s.sr.Recv()
		if errors.Is(err, io.EOF) {
			s.state = tutor.StreamStateComplete
			if s.reply.StopReason == "" {
				s.reply.StopReason = tutor.StopEndTurn
			}
			return nil, io.EOF
		}
		if err != nil {
			s.state = tutor.StreamStateError
			s.reply.StopReason = tutor.StopError
			if s.ctx.Err() != nil {
				s.reply.StopReason = tutor.StopAborted
			}
			s.err = classifyError(err)
			return nil, s.err
		}
		if chunk == nil {
			continue
		}
		s.absorbMeta(chunk.ResponseMeta)
		if chunk.Content == "" {
			continue
		}
		s.state = tutor.StreamStateStreaming
		s.text.WriteString(chunk.Content)
		return tutor.EventTextDelta{Delta: chunk.Content}, nil
	}
}

func (s *stream) absorbMeta(meta *schema.ResponseMeta) {
	if meta == nil {
		return
	}
	if meta.FinishReason != "" {
		s.reply.RawStopReason = meta.FinishReason
		s.reply.StopReason = mapFinishReason(meta.FinishReason)
	}
	if u := meta.Usage; u != nil {
		s.reply.Usage = tutor.Usage{InputTokens: u.PromptTokens, OutputTokens: u.CompletionTokens}
	}
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
	s.sr.Close()
	return nil
}

func mapFinishReason(raw string) tutor.StopReason {
	switch raw {
	case "stop":
		return tutor.StopEndTurn
	case "length":
		return tutor.StopLength
	case "content_filter":
		return tutor.StopSafety
	default:
		return tutor.StopUnknown
	}
}
