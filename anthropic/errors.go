package anthropic

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fwojciec/tutor"
)

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("anthropic: HTTP %d: %w: %w", resp.StatusCode, tutor.ErrTransient, err)
	}
	var apiErr apiError
	detail := string(body)
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Type != "" {
		detail = apiErr.Error.Type + ": " + apiErr.Error.Message
	}
	return fmt.Errorf("anthropic: HTTP %d: %s: %w", resp.StatusCode, detail, category(resp.StatusCode, apiErr.Error.Type))
}

// category maps an HTTP status or API error type to a failure category.
// The status wins when present; stream errors only carry the type.
func category(status int, errType string) error {
	switch {
	case status == http.StatusTooManyRequests || errType == "rate_limit_error":
		return tutor.ErrRateLimited
	case status == http.StatusNotFound || errType == "not_found_error":
		return tutor.ErrModelUnavailable
	case status == http.StatusUnauthorized || status == http.StatusForbidden,
		errType == "authentication_error" || errType == "permission_error":
		return tutor.ErrConfiguration
	case status >= 500 || errType == "overloaded_error" || errType == "api_error":
		return tutor.ErrTransient
	case status >= 400:
		return tutor.ErrConfiguration
	default:
		return tutor.ErrTransient
	}
}
