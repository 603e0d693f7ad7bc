// Package gemini implements [tutor.Provider] for the Google Gemini API.
//
// It wraps the google.golang.org/genai SDK, translating between tutor's
// domain types and the Gemini API types. Streaming uses the SDK's iter.Seq2
// iterator, wrapped into the pull-based [tutor.Stream] interface. API
// failures are mapped onto tutor's failure categories.
package gemini

const (
	// DefaultModel is used when no model is configured.
	DefaultModel     = "gemini-1.5-flash-8b"
	defaultMaxTokens = 2048
)
