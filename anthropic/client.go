package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fwojciec/tutor"
)

// Interface compliance checks.
var (
	_ tutor.Provider = (*Client)(nil)
	_ tutor.Verifier = (*Client)(nil)
)

// Client implements [tutor.Provider] for the Anthropic Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithModel sets the model used when a request names none.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// New creates a new Anthropic [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      DefaultModel,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Stream sends a streaming request to the Anthropic Messages API and returns
// a [tutor.Stream] that emits text deltas.
func (c *Client) Stream(ctx context.Context, req tutor.Request) (tutor.Stream, error) {
	body, err := c.buildRequestBody(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, messagesPath, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w: %w", tutor.ErrTransient, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}

	return newStream(ctx, resp.Body), nil
}

// Verify checks the key and model by fetching the model's metadata.
func (c *Client) Verify(ctx context.Context, model string) error {
	if c.apiKey == "" {
		return fmt.Errorf("anthropic: API key is empty: %w", tutor.ErrConfiguration)
	}
	if model == "" {
		model = c.model
	}
	httpReq, err := c.newRequest(ctx, http.MethodGet, modelsPath+url.PathEscape(model), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("anthropic: %w: %w", tutor.ErrTransient, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return parseHTTPError(resp)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Anthropic-Version", apiVersion)
	return req, nil
}

func (c *Client) buildRequestBody(req tutor.Request) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	return json.Marshal(apiRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Stream:      true,
		System:      convertSystem(req.SystemPrompt),
		Messages:    convertTurns(req.Turns),
		Temperature: req.Temperature,
	})
}

// convertSystem converts the preamble to a single cached text block. The
// preamble is identical on every request of a session, which makes it the
// natural cache breakpoint. Returns nil when the prompt is empty.
func convertSystem(prompt string) []apiTextBlock {
	if prompt == "" {
		return nil
	}
	return []apiTextBlock{{
		Type:         "text",
		Text:         prompt,
		CacheControl: &apiCacheControl{Type: "ephemeral"},
	}}
}

// convertTurns maps turns to API messages. The API requires alternating
// roles, so consecutive turns by the same speaker (left behind by failed
// submissions) are merged into one message with several text blocks.
func convertTurns(turns []tutor.Turn) []apiMessage {
	var result []apiMessage
	for _, t := range turns {
		role := "user"
		if t.Speaker == tutor.SpeakerAssistant {
			role = "assistant"
		}
		block := apiTextBlock{Type: "text", Text: t.Text}
		if n := len(result); n > 0 && result[n-1].Role == role {
			result[n-1].Content = append(result[n-1].Content, block)
			continue
		}
		result = append(result, apiMessage{Role: role, Content: []apiTextBlock{block}})
	}
	return result
}
