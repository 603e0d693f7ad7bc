package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fwojciec/tutor"
	"google.golang.org/genai"
)

// classifyError wraps err with the tutor failure category it belongs to.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("gemini: %w: %w", tutor.ErrTransient, err)
	}
	apiErr, ok := asAPIError(err)
	if !ok {
		// Transport errors sometimes only carry the status in their text.
		if strings.Contains(err.Error(), "429") {
			return fmt.Errorf("gemini: %w: %w", tutor.ErrRateLimited, err)
		}
		return fmt.Errorf("gemini: %w: %w", tutor.ErrTransient, err)
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED":
		return fmt.Errorf("gemini: %w: %w", tutor.ErrRateLimited, err)
	case apiErr.Code == http.StatusNotFound || apiErr.Status == "NOT_FOUND":
		return fmt.Errorf("gemini: %w: %w", tutor.ErrModelUnavailable, err)
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden,
		apiErr.Status == "UNAUTHENTICATED" || apiErr.Status == "PERMISSION_DENIED",
		apiErr.Code == http.StatusBadRequest && isKeyProblem(apiErr):
		return fmt.Errorf("gemini: %w: %w", tutor.ErrConfiguration, err)
	default:
		return fmt.Errorf("gemini: %w: %w", tutor.ErrTransient, err)
	}
}

// asAPIError extracts a genai.APIError whether the SDK returned it by value
// or by pointer.
func asAPIError(err error) (genai.APIError, bool) {
	var v genai.APIError
	if errors.As(err, &v) {
		return v, true
	}
	var p *genai.APIError
	if errors.As(err, &p) && p != nil {
		return *p, true
	}
	return genai.APIError{}, false
}

func isKeyProblem(e genai.APIError) bool {
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "api key") || strings.Contains(msg, "api_key")
}
