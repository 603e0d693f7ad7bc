package tutor

import "errors"

// Sentinel errors for common failure modes. Providers wrap one of the
// failure categories together with the underlying cause so callers can
// test with errors.Is.
var (
	// ErrValidation indicates a request, config or input failed validation.
	ErrValidation = errors.New("validation error")

	// ErrEmptyInput indicates an empty or whitespace-only student line.
	ErrEmptyInput = errors.New("empty input")

	// ErrBusy indicates a request is already in flight for the session.
	ErrBusy = errors.New("session busy: a request is already in flight")

	// ErrNothingToRetry indicates Retry was called without an unanswered
	// student turn.
	ErrNothingToRetry = errors.New("nothing to retry")

	// ErrConfiguration indicates a missing or invalid credential or model
	// identifier. The session cannot be created until it is fixed.
	ErrConfiguration = errors.New("configuration error")

	// ErrQuota indicates quota exhaustion while initializing a session.
	// Errors wrapping ErrQuota also match ErrRateLimited.
	ErrQuota = errors.New("quota exhausted")

	// ErrRateLimited indicates the service asked the caller to back off.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelUnavailable indicates the configured model cannot be served.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrTransient indicates a network, timeout or server-side failure
	// that may succeed on immediate resubmission.
	ErrTransient = errors.New("transient failure")

	// ErrStreamNotReady indicates Message() was called before Next().
	ErrStreamNotReady = errors.New("stream not ready: call Next() first")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")
)
