package push

import (
	"sync"
	"time"
)

// refreshGrace is held after a refresh completes so that near-simultaneous
// duplicate push triggers coalesce into the one refresh that just ran.
// The delay is intentional, not incidental.
const refreshGrace = 100 * time.Millisecond

// RefreshGuard is a single-flight guard around the "refresh current
// session info" operation: only one refresh may be in flight, and the
// guard stays held for a short grace period after completion.
type RefreshGuard struct {
	mu       sync.Mutex
	inFlight bool
	grace    time.Duration
}

// NewRefreshGuard creates a guard with the default grace delay.
func NewRefreshGuard() *RefreshGuard {
	return &RefreshGuard{grace: refreshGrace}
}

// TryBegin acquires the guard. It returns false when a refresh is already
// in flight (or still within its grace window); the caller must skip the
// refresh entirely.
func (g *RefreshGuard) TryBegin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight {
		return false
	}
	g.inFlight = true
	return true
}

// End releases the guard after the grace delay. Call exactly once per
// successful TryBegin, whether the refresh succeeded or failed.
func (g *RefreshGuard) End() {
	time.AfterFunc(g.grace, func() {
		g.mu.Lock()
		g.inFlight = false
		g.mu.Unlock()
	})
}
