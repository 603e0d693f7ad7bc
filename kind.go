package tutor

import (
	"errors"
	"fmt"
)

// Kind is the user-visible failure category of an error.
type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindBusy
	KindConfiguration
	KindQuota
	KindModelUnavailable
	KindTransient
)

// Classify maps err to its failure category. Errors that match no known
// category are transient: the caller may resend immediately.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrBusy):
		return KindBusy
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNothingToRetry):
		return KindValidation
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrQuota), errors.Is(err, ErrRateLimited):
		return KindQuota
	case errors.Is(err, ErrModelUnavailable):
		return KindModelUnavailable
	default:
		return KindTransient
	}
}

// String returns a short machine-friendly name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindBusy:
		return "busy"
	case KindConfiguration:
		return "configuration"
	case KindQuota:
		return "rate_limited"
	case KindModelUnavailable:
		return "model_unavailable"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Hint returns guidance shown to the student next to the error.
func (k Kind) Hint() string {
	switch k {
	case KindValidation:
		return "Type a message before sending."
	case KindBusy:
		return "Wait for the current reply to finish."
	case KindConfiguration:
		return "The tutor is misconfigured; retrying will not help."
	case KindQuota:
		return "The tutor is resting. Wait a minute, then resend."
	case KindModelUnavailable:
		return "The configured model is unavailable; retrying will not help."
	case KindTransient:
		return "Something went wrong in transit. Resend now."
	default:
		return ""
	}
}

// Retryable reports whether resubmitting the same text may succeed.
func (k Kind) Retryable() bool {
	return k == KindQuota || k == KindTransient
}

// transient wraps err in ErrTransient unless it already belongs to a
// failure category. Context deadlines and cancellations end up here.
func transient(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{ErrConfiguration, ErrQuota, ErrRateLimited, ErrModelUnavailable, ErrTransient} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}
