package peer

import (
	"log"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/pbxkit/softphone/internal/session"
)

// Binder consumes signaling-peer events and routes them into the
// call-state machine. It also retains the SDP attached to the latest
// call-progress event so hosts renegotiating media can fetch it.
type Binder struct {
	m      *session.Machine
	cancel func()
	done   chan struct{}

	mu         sync.Mutex
	remoteDesc *webrtc.SessionDescription
}

// NewBinder subscribes to the peer's event stream and starts consuming
// immediately.
func NewBinder(m *session.Machine, p Peer) *Binder {
	events, cancel := p.Subscribe()
	b := &Binder{m: m, cancel: cancel, done: make(chan struct{})}
	go b.loop(events)
	return b
}

// Close stops the binder and cancels its peer subscription.
func (b *Binder) Close() {
	select {
	case <-b.done:
	default:
		close(b.done)
	}
	b.cancel()
}

// RemoteDescription returns the session description carried by the most
// recent call-bearing peer event, or nil when none arrived yet. Cleared
// on hangup.
func (b *Binder) RemoteDescription() *webrtc.SessionDescription {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remoteDesc
}

func (b *Binder) setRemoteDescription(d *webrtc.SessionDescription) {
	b.mu.Lock()
	b.remoteDesc = d
	b.mu.Unlock()
}

func (b *Binder) loop(events <-chan Event) {
	for {
		select {
		case <-b.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			b.dispatch(ev)
		}
	}
}

func (b *Binder) dispatch(ev Event) {
	if ev.Description != nil {
		b.setRemoteDescription(ev.Description)
	}
	switch ev.Name {
	case EvRegistered:
		b.m.SetPeerRegistered(true)
	case EvRegistering:
		// Transitional; nothing to record yet.
	case EvRegistrationFailed:
		b.m.SetPeerRegistered(false)
		log.Printf("PEER: registration failed: %s", ev.Message)
	case EvIncomingCall:
		b.m.PeerIncoming(ev.DisplayName, ev.Number)
	case EvCalling, EvProgress:
		b.m.PeerCalling(ev.Number)
	case EvAccepted:
		b.m.PeerAccepted()
	case EvHangup:
		b.setRemoteDescription(nil)
		b.m.PeerHangup()
	case EvError:
		b.m.PeerError(ev.Message)
	default:
		log.Printf("PEER: unhandled event %q", ev.Name)
	}
}
