package gemini

import (
	"context"
	"fmt"

	"github.com/fwojciec/tutor"
	"google.golang.org/genai"
)

// Interface compliance checks.
var (
	_ tutor.Provider = (*Client)(nil)
	_ tutor.Verifier = (*Client)(nil)
)

// Client implements [tutor.Provider] for the Google Gemini API.
type Client struct {
	client  *genai.Client
	model   string
	baseURL string
}

// Option configures a [Client].
type Option func(*Client)

// WithModel sets the model ID. Default is gemini-1.5-flash-8b.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// New creates a new Gemini [Client] with the given API key and options.
// A missing key is a configuration error.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is empty: %w", tutor.ErrConfiguration)
	}
	c := &Client{model: DefaultModel}
	for _, o := range opts {
		o(c)
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	gc, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w: %w", tutor.ErrConfiguration, err)
	}
	c.client = gc
	return c, nil
}

// Stream sends a streaming request to the Gemini API and returns a
// [tutor.Stream] that emits text deltas.
func (c *Client) Stream(ctx context.Context, req tutor.Request) (tutor.Stream, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	seq := c.client.Models.GenerateContentStream(ctx, model, ConvertTurns(req.Turns), buildConfig(req))
	return newStream(ctx, seq), nil
}

// Verify checks that the key is accepted and the model exists by fetching
// the model's metadata. It does not consume generation quota.
func (c *Client) Verify(ctx context.Context, model string) error {
	if model == "" {
		model = c.model
	}
	if _, err := c.client.Models.Get(ctx, model, nil); err != nil {
		return classifyError(err)
	}
	return nil
}

func buildConfig(req tutor.Request) *genai.GenerateContentConfig {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}

	if req.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}

	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		config.Temperature = &temp
	}

	return config
}

// ConvertTurns converts tutor Turns to genai Contents. Student turns use
// the "user" role and assistant turns the "model" role.
// Exported for testing.
func ConvertTurns(turns []tutor.Turn) []*genai.Content {
	result := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Speaker == tutor.SpeakerAssistant {
			role = "model"
		}
		result = append(result, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: t.Text}},
		})
	}
	return result
}
