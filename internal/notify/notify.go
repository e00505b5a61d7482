// Package notify fans out fire-and-forget notifications from the
// reconciliation core to embedding hosts (UI layer, ringtone player,
// external listeners). No acknowledgement is expected.
package notify

import "sync"

// Notification kinds emitted by the core.
const (
	Ringing              = "ringing"
	CallAnswered         = "call-answered"
	CallStart            = "call-start"
	OutgoingCallStarted  = "outgoing-call-started"
	URLParameterOpened   = "url-parameter-opened"
	ConferenceFinished   = "conference-finished"
	StreamingInformation = "streaming-information-received"
	VoicemailReceived    = "voicemail-received"
	DefaultDeviceUpdated = "default-device-updated"
	TransferFailed       = "transfer-failed"
	SocketStatus         = "socket-status"
	QueueUpdate          = "queue-update"
	QueueMemberUpdate    = "queue-member-update"
	ParkingUpdate        = "parking-update"
	ServerReloaded       = "server-reloaded"
	TakeOver             = "take-over"
	CallWebrtcRequested  = "call-webrtc-requested"
	CallHangup           = "call-hangup"
	Error                = "error"
)

// Notification is one outbound event with an optional payload.
type Notification struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Hub delivers notifications to any number of subscribers. Sends never
// block: a subscriber that falls behind loses notifications rather than
// stalling the call-state machine.
type Hub struct {
	mu        sync.RWMutex
	listeners map[chan Notification]struct{}
}

// NewHub creates an empty notification hub.
func NewHub() *Hub {
	return &Hub{listeners: make(map[chan Notification]struct{})}
}

// Subscribe returns a channel that receives notifications and a cancel
// function. Cancel is idempotent.
func (h *Hub) Subscribe() (ch chan Notification, cancel func()) {
	ch = make(chan Notification, 64)

	h.mu.Lock()
	h.listeners[ch] = struct{}{}
	h.mu.Unlock()

	cancel = func() {
		h.mu.Lock()
		if _, ok := h.listeners[ch]; ok {
			delete(h.listeners, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a notification to all current subscribers.
func (h *Hub) Publish(typ string, payload any) {
	n := Notification{Type: typ, Payload: payload}
	h.mu.RLock()
	for ch := range h.listeners {
		select {
		case ch <- n:
		default:
		}
	}
	h.mu.RUnlock()
}

// Close closes all subscriber channels and drops them.
func (h *Hub) Close() {
	h.mu.Lock()
	for ch := range h.listeners {
		close(ch)
	}
	h.listeners = make(map[chan Notification]struct{})
	h.mu.Unlock()
}
