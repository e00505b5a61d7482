package session

import (
	"time"

	"github.com/pbxkit/softphone/internal/arbiter"
	"github.com/pbxkit/softphone/internal/event"
	"github.com/pbxkit/softphone/internal/notify"
)

// Peer-originated events set the raw fromPeer flags and re-run
// arbitration; effects fire only on the rising edge of an arbitrated
// flag, so a peer and a push report of the same fact never double up.

// PeerIncoming records an incomingcall report from the signaling peer.
func (m *Machine) PeerIncoming(displayName, number string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = time.Now()

	m.cs.IncomingFromPeer = true
	if !arbiter.Arbitrate(m.defaultDevice, m.cs.IncomingFromPush, m.cs.IncomingFromPeer, m.hasOnlineSecondary) {
		return
	}
	wasIncoming := m.cs.Incoming
	m.cs.Incoming = true
	m.cs.Direction = event.DirectionIn
	if displayName != "" {
		m.cs.DisplayName = event.DisplayName(displayName, number)
	} else if m.cs.DisplayName == "" {
		m.cs.DisplayName = event.DisplayName("", number)
	}
	if number != "" {
		m.cs.CounterpartNumber = number
	}
	m.transitionTo(StateRinging)

	if !m.cs.Accepted && !m.ringing {
		m.ringer.Play()
		m.ringing = true
	}
	if !wasIncoming {
		m.hub.Publish(notify.Ringing, map[string]string{
			"display_name": m.cs.DisplayName,
			"number":       m.cs.CounterpartNumber,
		})
	}
}

// PeerCalling records that the peer started dialing out (calling/progress).
func (m *Machine) PeerCalling(number string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = time.Now()

	m.cs.OutgoingFromPeer = true
	if !arbiter.Arbitrate(m.defaultDevice, m.cs.OutgoingFromPush, m.cs.OutgoingFromPeer, m.hasOnlineSecondary) {
		return
	}
	wasOutgoing := m.cs.Outgoing
	m.cs.Outgoing = true
	m.cs.Direction = event.DirectionOut
	if number != "" {
		m.cs.CounterpartNumber = number
		m.cs.DisplayName = event.DisplayName("", number)
	}
	m.transitionTo(StateRinging)
	if !wasOutgoing {
		m.hub.Publish(notify.OutgoingCallStarted, map[string]string{
			"number": m.cs.CounterpartNumber,
		})
	}
}

// PeerAccepted records that the peer's SIP leg was answered.
func (m *Machine) PeerAccepted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = time.Now()

	m.cs.AcceptedFromPeer = true
	if !arbiter.Arbitrate(m.defaultDevice, m.cs.AcceptedFromPush, m.cs.AcceptedFromPeer, m.hasOnlineSecondary) {
		return
	}
	wasAccepted := m.cs.Accepted
	m.cs.Accepted = true
	m.cs.Incoming = false
	m.cs.Outgoing = false
	m.cs.setStartTime(time.Now().UnixMilli())
	m.stopRingtone()
	m.transitionTo(StateAccepted)
	if !wasAccepted {
		m.hub.Publish(notify.CallAnswered, map[string]string{
			"display_name": m.cs.DisplayName,
			"number":       m.cs.CounterpartNumber,
		})
		m.hub.Publish(notify.CallStart, map[string]int64{
			"start_time": m.cs.StartTime,
		})
	}
}

// PeerHangup is the peer-originated terminal event: full session reset.
func (m *Machine) PeerHangup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = time.Now()
	m.resetLocked()
	m.hub.Publish(notify.CallHangup, nil)
}

// PeerError handles an error payload from the signaling peer: the local
// call is forced down and an error notification fires. Never fatal.
func (m *Machine) PeerError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = time.Now()
	m.resetLocked()
	m.hub.Publish(notify.Error, msg)
}

// BeginTransfer marks the active call as transferring.
func (m *Machine) BeginTransfer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.cs.Accepted {
		return
	}
	m.cs.Transferring = true
	m.cs.TransferSwitching = false
	m.transitionTo(StateTransferring)
}

// BeginTransferSwitch marks that the user is switching between transfer
// legs; the busy-probe transition is suspended while set.
func (m *Machine) BeginTransferSwitch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cs.Transferring {
		m.cs.TransferSwitching = true
	}
}

// FinishTransferSwitch completes a leg switch: transferred entries are
// dropped in bulk, destination entries survive.
func (m *Machine) FinishTransferSwitch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.cs.Transferring {
		return
	}
	m.cs.TransferSwitching = false
	m.ledger.DeleteTransferred()
	m.cs.TransferCalls = m.ledger.Entries()
}

// CancelTransfer leaves transfer mode without completing it.
func (m *Machine) CancelTransfer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cs.Transferring = false
	m.cs.TransferSwitching = false
	if m.cs.Accepted {
		m.transitionTo(StateAccepted)
	}
}

// BeginConference marks the session as conferencing. startedLocally is
// remembered for the hangup-driven conference reset.
func (m *Machine) BeginConference(id string, startedLocally bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.cs.Accepted {
		return
	}
	m.cs.Conferencing = true
	m.conferenceID = id
	m.conferenceStartedLocal = startedLocally
	m.transitionTo(StateConferencing)
}

// SetRecording flags the device as busy recording; cleared by the idle reset.
func (m *Machine) SetRecording(v bool) {
	m.mu.Lock()
	m.deviceBusyRecording = v
	m.mu.Unlock()
}

// Recording reports the device-busy recording flag.
func (m *Machine) Recording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deviceBusyRecording
}
