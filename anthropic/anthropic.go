// Package anthropic implements [tutor.Provider] for the Anthropic Messages API.
//
// It connects to the Messages API via SSE and emits text deltas through the
// pull-based [tutor.Stream] interface. HTTP and stream errors are mapped onto
// tutor's failure categories.
package anthropic

const (
	defaultBaseURL   = "https://api.anthropic.com"
	// DefaultModel is used when no model is configured.
	DefaultModel     = "claude-3-5-haiku-latest"
	defaultMaxTokens = 2048
	apiVersion       = "2023-06-01"
	messagesPath     = "/v1/messages"
	modelsPath       = "/v1/models/"
)

// apiCacheControl specifies a cache breakpoint for prompt caching.
type apiCacheControl struct {
	Type string `json:"type"` // always "ephemeral"
}

// apiRequest is the JSON body sent to the Anthropic Messages API.
type apiRequest struct {
	Model       string         `json:"model"`
	MaxTokens   int            `json:"max_tokens"`
	Stream      bool           `json:"stream"`
	System      []apiTextBlock `json:"system,omitempty"`
	Messages    []apiMessage   `json:"messages"`
	Temperature *float64       `json:"temperature,omitempty"`
}

type apiMessage struct {
	Role    string         `json:"role"`
	Content []apiTextBlock `json:"content"`
}

type apiTextBlock struct {
	Type         string           `json:"type"`
	Text         string           `json:"text"`
	CacheControl *apiCacheControl `json:"cache_control,omitempty"`
}

// SSE response types.

type sseMessageStart struct {
	Type    string            `json:"type"`
	Message sseMessagePayload `json:"message"`
}

type sseMessagePayload struct {
	ID    string   `json:"id"`
	Model string   `json:"model"`
	Usage sseUsage `json:"usage"`
}

type sseUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type sseContentBlockDelta struct {
	Type  string   `json:"type"`
	Index int      `json:"index"`
	Delta sseDelta `json:"delta"`
}

type sseDelta struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type sseMessageDelta struct {
	Type  string             `json:"type"`
	Delta sseMessageDeltaVal `json:"delta"`
	Usage sseUsage           `json:"usage"`
}

type sseMessageDeltaVal struct {
	StopReason *string `json:"stop_reason"`
}

// apiError is the body of an "error" SSE event and of non-200 responses.
type apiError struct {
	Type  string         `json:"type"`
	Error apiErrorDetail `json:"error"`
}

type apiErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
