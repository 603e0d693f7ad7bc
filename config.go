package tutor

// DefaultOpeningPrompt is the hidden student line sent when a session
// opens with an unsolicited assistant turn.
const DefaultOpeningPrompt = "Please start the challenge now."

// Config is fixed at process start and shared read-only by every session.
type Config struct {
	// Model is the provider-specific model identifier. Required.
	Model string
	// Preamble is the instruction block sent as the system prompt on every
	// request. Required.
	Preamble string
	// Temperature is nil for the provider default.
	Temperature *float64
	// MaxOutputTokens is 0 for the provider default.
	MaxOutputTokens int
	// Opening makes Initialize request one assistant turn before any
	// student input. Each opening costs one request against the quota.
	Opening bool
	// OpeningPrompt is the hidden student line used for the opening
	// request. Empty means DefaultOpeningPrompt.
	OpeningPrompt string
}

func (c Config) openingPrompt() string {
	if c.OpeningPrompt == "" {
		return DefaultOpeningPrompt
	}
	return c.OpeningPrompt
}
