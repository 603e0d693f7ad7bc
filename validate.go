package tutor

import (
	"fmt"
	"strings"
)

// Validate checks universal constraints on Request.
// Provider implementations may apply additional provider-specific validation.
func (r Request) Validate() error {
	if r.Temperature != nil {
		if *r.Temperature < 0 || *r.Temperature > 2 {
			return fmt.Errorf("temperature must be in [0, 2], got %g: %w", *r.Temperature, ErrValidation)
		}
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d: %w", r.MaxTokens, ErrValidation)
	}
	if len(r.Turns) == 0 {
		return fmt.Errorf("request has no turns: %w", ErrValidation)
	}
	if r.Turns[0].Speaker != SpeakerStudent {
		return fmt.Errorf("first turn must be spoken by the student, got %s: %w", r.Turns[0].Speaker, ErrValidation)
	}
	return nil
}

// Validate checks that c can open a session. It never touches the network.
// A missing model or preamble is a configuration error rather than a
// validation error because no input from the student can fix it.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("model identifier is empty: %w", ErrConfiguration)
	}
	if strings.TrimSpace(c.Preamble) == "" {
		return fmt.Errorf("instruction preamble is empty: %w", ErrConfiguration)
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature must be in [0, 2], got %g: %w", *c.Temperature, ErrConfiguration)
	}
	if c.MaxOutputTokens < 0 {
		return fmt.Errorf("max output tokens must be non-negative, got %d: %w", c.MaxOutputTokens, ErrConfiguration)
	}
	return nil
}
