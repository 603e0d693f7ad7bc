package http

import "time"

// SetRegistryClock replaces the registry clock.
func SetRegistryClock(r *Registry, now func() time.Time) {
	r.now = now
}
