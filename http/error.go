package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fwojciec/tutor"
	tutorjson "github.com/fwojciec/tutor/json"
)

var (
	errSessionNotFound = errors.New("session not found")
	errTooManyRequests = errors.New("too many requests from this client")
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error *tutorjson.Error `json:"error"`
}

// statusFor maps a failure category to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, errTooManyRequests):
		return http.StatusTooManyRequests
	}
	switch tutor.Classify(err) {
	case tutor.KindValidation:
		return http.StatusBadRequest
	case tutor.KindBusy:
		return http.StatusConflict
	case tutor.KindQuota:
		return http.StatusTooManyRequests
	case tutor.KindModelUnavailable:
		return http.StatusServiceUnavailable
	case tutor.KindConfiguration:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	body := errorResponse{Error: tutorjson.NewError(err)}
	// Failures of the server itself, not of the tutor session.
	switch {
	case errors.Is(err, errSessionNotFound):
		body.Error.Kind = "not_found"
		body.Error.Hint = "Start a new session."
		body.Error.Retryable = false
	case errors.Is(err, errTooManyRequests):
		body.Error.Kind = "too_many_requests"
		body.Error.Hint = "Too many requests from this client. Slow down, then resend."
		body.Error.Retryable = true
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
