package peer

import "time"

// Watchdog timing defaults. The check interval is intentionally slightly
// longer than the deadline, so a single check observes a full deadline's
// worth of inactivity.
const (
	DefaultIdleDeadline  = 45 * time.Minute
	DefaultCheckInterval = 50 * time.Minute
)

// CheckActivity decides whether the signaling peer may be safely torn
// down and reinitialized. onIdleExceeded fires only when the time since
// lastActivity exceeds deadline AND isIdle reports true; an exceeded
// deadline during an active call takes no action. Does not self-schedule;
// run it from a ticker.
func CheckActivity(lastActivity time.Time, deadline time.Duration, isIdle func() bool, onIdleExceeded func()) {
	if time.Since(lastActivity) <= deadline {
		return
	}
	if !isIdle() {
		return
	}
	onIdleExceeded()
}
