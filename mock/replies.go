package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/fwojciec/tutor"
)

// Replies is a scripted provider. Each request consumes the next entry:
// a string answers with that text, an error fails the request. Requests
// beyond the script fail. Replies is safe for concurrent use.
type Replies struct {
	mu       sync.Mutex
	script   []any
	requests []tutor.Request
}

// NewReplies returns a provider answering with script in order. Entries
// must be strings or errors.
func NewReplies(script ...any) *Replies {
	return &Replies{script: script}
}

var _ tutor.Provider = (*Replies)(nil)

// Stream answers req with the next scripted entry.
func (r *Replies) Stream(ctx context.Context, req tutor.Request) (tutor.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := len(r.requests)
	r.requests = append(r.requests, req)
	if i >= len(r.script) {
		return nil, fmt.Errorf("mock: unexpected request #%d", i+1)
	}
	switch v := r.script[i].(type) {
	case string:
		return TextStream(v), nil
	case error:
		return nil, v
	default:
		panic(fmt.Sprintf("mock: script entry %d has unsupported type %T", i, v))
	}
}

// Requests returns a copy of the requests received so far.
func (r *Replies) Requests() []tutor.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]tutor.Request, len(r.requests))
	copy(out, r.requests)
	return out
}
