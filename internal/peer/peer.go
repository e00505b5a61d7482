// Package peer defines the surface of the local WebRTC/SIP signaling
// stack. The stack itself is an external collaborator: it delivers named
// events with an optional session description and exposes call-control
// primitives. This package binds those events to the call-state machine
// and hosts the inactivity watchdog that gates stack teardown.
package peer

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// Signaling-peer event names.
const (
	EvRegistrationFailed = "registration_failed"
	EvRegistered         = "registered"
	EvRegistering        = "registering"
	EvCalling            = "calling"
	EvIncomingCall       = "incomingcall"
	EvProgress           = "progress"
	EvAccepted           = "accepted"
	EvHangup             = "hangup"
	EvError              = "error"
)

// Event is one signaling report from the peer stack. Description carries
// the SDP attached to call-progress events, when present.
type Event struct {
	Name        string
	DisplayName string
	Number      string
	Message     string
	Description *webrtc.SessionDescription
}

// Peer is the call-control surface of the signaling stack.
type Peer interface {
	// Register (re-)registers the SIP account.
	Register(ctx context.Context) error
	// Call places an outbound call to number.
	Call(ctx context.Context, number string) error
	// Answer accepts the pending incoming call.
	Answer(ctx context.Context) error
	// Hangup terminates the current call. Idempotent.
	Hangup() error
	// Subscribe returns the event stream and a cancel function.
	Subscribe() (<-chan Event, func())
	// Close tears the stack down so it can be reinitialized.
	Close() error
}
