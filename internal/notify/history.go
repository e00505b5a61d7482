package notify

import "github.com/pbxkit/softphone/internal/util"

// History retains the most recent notifications so a host attaching late
// (or an operator debugging a call) can see what led up to the current
// state. It is a plain subscriber; dropping it never affects delivery.
type History struct {
	ring   *util.RingBuffer[Notification]
	cancel func()
}

// NewHistory subscribes to hub and records the last capacity notifications.
func NewHistory(hub *Hub, capacity int) *History {
	h := &History{ring: util.NewRingBuffer[Notification](capacity)}
	ch, cancel := hub.Subscribe()
	h.cancel = cancel
	go func() {
		for n := range ch {
			h.ring.Push(n)
		}
	}()
	return h
}

// Recent returns the recorded notifications, oldest first.
func (h *History) Recent() []Notification {
	return h.ring.Snapshot()
}

// Close detaches the history from the hub.
func (h *History) Close() {
	h.cancel()
}
