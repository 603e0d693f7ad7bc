// Package mock provides test doubles for tutor interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/tutor"
)

// Interface compliance checks.
var (
	_ tutor.Provider = (*Provider)(nil)
	_ tutor.Verifier = (*Provider)(nil)
)

// Provider is a test double for tutor.Provider and tutor.Verifier.
// StreamFn panics when nil to catch missing setup. VerifyFn is nil-safe
// because most tests do not care about verification.
type Provider struct {
	StreamFn func(ctx context.Context, req tutor.Request) (tutor.Stream, error)
	VerifyFn func(ctx context.Context, model string) error
}

// Stream delegates to StreamFn.
func (p *Provider) Stream(ctx context.Context, req tutor.Request) (tutor.Stream, error) {
	return p.StreamFn(ctx, req)
}

// Verify delegates to VerifyFn. Returns nil when VerifyFn is not set.
func (p *Provider) Verify(ctx context.Context, model string) error {
	if p.VerifyFn == nil {
		return nil
	}
	return p.VerifyFn(ctx, model)
}
