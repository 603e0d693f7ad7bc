package http

import (
	"sync"
	"time"

	"github.com/fwojciec/tutor"
)

// Registry holds the sessions of web visitors. A session that sees no
// traffic for the TTL is dropped by Reap.
type Registry struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*registryEntry
}

type registryEntry struct {
	session  *tutor.Session
	lastSeen time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*registryEntry),
	}
}

// Add registers s.
func (r *Registry) Add(s *tutor.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = &registryEntry{session: s, lastSeen: r.now()}
}

// Get returns the session with id and marks it as seen.
func (r *Registry) Get(id string) (*tutor.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.session, true
}

// Remove drops the session with id. It reports whether it existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Reap drops sessions idle for longer than the TTL and returns their IDs.
// Sessions with a request in flight are never dropped.
func (r *Registry) Reap() []string {
	if r.ttl <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.ttl)
	var reaped []string
	for id, e := range r.sessions {
		seen := e.lastSeen
		if u := e.session.UpdatedAt(); u.After(seen) {
			seen = u
		}
		if seen.Before(cutoff) && !e.session.Running() {
			delete(r.sessions, id)
			reaped = append(reaped, id)
		}
	}
	return reaped
}
