package session

import (
	"log"
	"sync"
	"time"

	"github.com/pbxkit/softphone/internal/arbiter"
	"github.com/pbxkit/softphone/internal/event"
	"github.com/pbxkit/softphone/internal/notify"
)

// State is the coarse lifecycle state of the call session.
type State string

const (
	StateIdle         State = "idle"
	StateRinging      State = "ringing"
	StateAccepted     State = "accepted"
	StateTransferring State = "transferring"
	StateConferencing State = "conferencing"
)

// validNext defines which state transitions are allowed. Idle is both the
// initial and the terminal state; a reset from any state lands back on it.
var validNext = map[State][]State{
	StateIdle:         {StateRinging, StateAccepted, StateIdle},
	StateRinging:      {StateAccepted, StateIdle, StateRinging},
	StateAccepted:     {StateTransferring, StateConferencing, StateIdle, StateAccepted},
	StateTransferring: {StateAccepted, StateConferencing, StateIdle, StateTransferring},
	StateConferencing: {StateIdle, StateAccepted, StateConferencing},
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s State) CanTransitionTo(next State) bool {
	for _, n := range validNext[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Ringer plays and stops the incoming-call ringtone. Implementations must
// tolerate repeated Stop calls.
type Ringer interface {
	Play()
	Stop()
}

type noopRinger struct{}

func (noopRinger) Play() {}
func (noopRinger) Stop() {}

// ViewCall is the view selected when transfer destination data arrives.
const ViewCall = "call"

// Options configures a Machine.
type Options struct {
	DefaultDevice      arbiter.DeviceType
	OwnedExtensions    []string
	HasOnlineSecondary bool

	// AutoOpenURL, when non-empty, is announced once per incoming call via
	// a url-parameter-opened notification (post-ring auto-action).
	AutoOpenURL string

	Ringer Ringer

	// SelectView is called when the core wants a particular view shown.
	// Nil means no view integration.
	SelectView func(view string)
}

// Machine is the call-state machine: the single owner of the CallSession,
// the transfer ledger and the snapshot table. All mutation happens under
// one mutex, in event arrival order.
type Machine struct {
	mu     sync.Mutex
	cs     CallSession
	state  State
	ledger *TransferLedger
	snaps  *SnapshotTable
	hub    *notify.Hub
	ringer Ringer

	defaultDevice      arbiter.DeviceType
	hasOnlineSecondary bool
	ownedExtens        map[string]bool

	autoOpenURL string
	urlOpened   bool

	ringing             bool
	deviceBusyRecording bool
	answeredElsewhere   bool

	conferenceID           string
	conferenceStartedLocal bool

	// Peer registration lives here as an explicit field so it survives
	// reconnects; it must never move into a closure.
	peerRegistered bool

	selectView func(view string)

	lastActivity time.Time

	voicemailCount int
}

// NewMachine creates a Machine publishing to hub.
func NewMachine(hub *notify.Hub, opts Options) *Machine {
	m := &Machine{
		state:              StateIdle,
		ledger:             NewTransferLedger(),
		snaps:              NewSnapshotTable(),
		hub:                hub,
		ringer:             opts.Ringer,
		defaultDevice:      opts.DefaultDevice,
		hasOnlineSecondary: opts.HasOnlineSecondary,
		ownedExtens:        map[string]bool{},
		autoOpenURL:        opts.AutoOpenURL,
		selectView:         opts.SelectView,
		lastActivity:       time.Now(),
	}
	if m.ringer == nil {
		m.ringer = noopRinger{}
	}
	if m.selectView == nil {
		m.selectView = func(string) {}
	}
	for _, ex := range opts.OwnedExtensions {
		m.ownedExtens[ex] = true
	}
	return m
}

// Session returns a copy of the current call session, ledger included.
func (m *Machine) Session() CallSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	cs := m.cs
	cs.TransferCalls = m.ledger.Entries()
	return cs
}

// State returns the current lifecycle state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshots exposes the extension snapshot table (read side).
func (m *Machine) Snapshots() *SnapshotTable { return m.snaps }

// LastActivity returns the time of the last consumed event.
func (m *Machine) LastActivity() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActivity
}

// IsIdle reports whether the machine, ledger and all owned extensions are
// fully idle. Used by the activity watchdog to gate peer teardown.
func (m *Machine) IsIdle() bool {
	m.mu.Lock()
	state := m.state
	ledgerLen := m.ledger.Len()
	owned := make([]string, 0, len(m.ownedExtens))
	for ex := range m.ownedExtens {
		owned = append(owned, ex)
	}
	m.mu.Unlock()
	return state == StateIdle && ledgerLen == 0 && m.snaps.IsFullyIdle(owned)
}

// SetDefaultDevice updates the arbitration default device.
func (m *Machine) SetDefaultDevice(dt arbiter.DeviceType) {
	m.mu.Lock()
	m.defaultDevice = dt
	m.mu.Unlock()
}

// SetHasOnlineSecondary records whether a secondary device is online,
// feeding the unset-device arbitration fallback.
func (m *Machine) SetHasOnlineSecondary(v bool) {
	m.mu.Lock()
	m.hasOnlineSecondary = v
	m.mu.Unlock()
}

// SetOwnedExtensions replaces the set of extensions driving session
// transitions. Updates for other extensions still refresh snapshots.
func (m *Machine) SetOwnedExtensions(extens []string) {
	m.mu.Lock()
	m.ownedExtens = map[string]bool{}
	for _, ex := range extens {
		m.ownedExtens[ex] = true
	}
	m.mu.Unlock()
}

// SetPeerRegistered records the SIP registration state of the signaling peer.
func (m *Machine) SetPeerRegistered(ok bool) {
	m.mu.Lock()
	m.peerRegistered = ok
	m.mu.Unlock()
}

// PeerRegistered reports the SIP registration state of the signaling peer.
func (m *Machine) PeerRegistered() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peerRegistered
}

// SetMuted flips local mute (UI action).
func (m *Machine) SetMuted(v bool) {
	m.mu.Lock()
	m.cs.Muted = v
	m.mu.Unlock()
}

// SetPaused flips local hold (UI action).
func (m *Machine) SetPaused(v bool) {
	m.mu.Lock()
	m.cs.Paused = v
	m.mu.Unlock()
}

// AnsweredElsewhere reports whether the current call was answered from
// another device type, so the local view should stay hidden.
func (m *Machine) AnsweredElsewhere() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.answeredElsewhere
}

// trigger tags the transition-relevant shape of a push update.
type trigger int

const (
	trigNone trigger = iota
	trigRinging
	trigBusyConnected
	trigBusyNotConnected
	trigBusyRinging
	trigOnHold
	trigIdle
)

// classify maps a normalized update onto its trigger kind.
func classify(u event.ExtenUpdate, ev event.ConversationEvent, hasConv bool) trigger {
	if !hasConv {
		if u.Status == event.StatusOnline {
			return trigIdle
		}
		return trigNone
	}
	switch ev.Status {
	case event.StatusRinging:
		return trigRinging
	case event.StatusBusyRinging:
		return trigBusyRinging
	case event.StatusOnHold:
		return trigOnHold
	case event.StatusBusy:
		if ev.Connected {
			return trigBusyConnected
		}
		return trigBusyNotConnected
	}
	return trigNone
}

// transitions is the explicit transition table. Arbitration and
// state-dependent guards live inside each handler; the table replaces the
// original deep per-event-name conditional dispatch.
var transitions = map[trigger]func(m *Machine, ev event.ConversationEvent, name string){
	trigRinging:          (*Machine).onRinging,
	trigBusyConnected:    (*Machine).onBusyConnected,
	trigBusyNotConnected: (*Machine).onBusyNotConnected,
	trigBusyRinging:      (*Machine).onBusyRinging,
	trigOnHold:           (*Machine).onHold,
}

// HandleExtenUpdate consumes the primary push event: refreshes the
// snapshot for that extension, then applies the matching transition when
// the update belongs to one of the user's own extensions.
func (m *Machine) HandleExtenUpdate(u event.ExtenUpdate) {
	m.snaps.Replace(u)

	ev, hasConv, name := event.Normalize(u)
	trig := classify(u, ev, hasConv)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = time.Now()

	if len(m.ownedExtens) > 0 && !m.ownedExtens[u.Exten] {
		return
	}

	if trig == trigIdle {
		m.onIdle()
		return
	}
	if fn, ok := transitions[trig]; ok {
		fn(m, ev, name)
	}
}

// onRinging handles an incoming-call push report.
func (m *Machine) onRinging(ev event.ConversationEvent, name string) {
	m.cs.IncomingFromPush = true
	if !arbiter.Arbitrate(m.defaultDevice, m.cs.IncomingFromPush, m.cs.IncomingFromPeer, m.hasOnlineSecondary) {
		return
	}
	m.cs.Incoming = true
	m.cs.ConversationID = ev.ID
	m.cs.DisplayName = name
	m.cs.CounterpartNumber = ev.CounterpartNumber
	m.cs.OwnerExtension = ev.Owner
	m.cs.Direction = event.DirectionIn
	m.cs.setStartTime(ev.StartTime)
	m.transitionTo(StateRinging)

	// Never restart playback once the call is accepted (a late ringing
	// report after answer must not ring again).
	if !m.cs.Accepted && !m.ringing {
		m.ringer.Play()
		m.ringing = true
	}

	m.hub.Publish(notify.Ringing, map[string]string{
		"display_name": name,
		"number":       ev.CounterpartNumber,
	})

	if m.autoOpenURL != "" && !m.urlOpened {
		m.urlOpened = true
		m.hub.Publish(notify.URLParameterOpened, m.autoOpenURL)
	}
}

// onBusyConnected handles the answered-call push report.
func (m *Machine) onBusyConnected(ev event.ConversationEvent, name string) {
	m.cs.AcceptedFromPush = true
	if !arbiter.Arbitrate(m.defaultDevice, m.cs.AcceptedFromPush, m.cs.AcceptedFromPeer, m.hasOnlineSecondary) {
		return
	}
	wasAccepted := m.cs.Accepted
	m.cs.Accepted = true
	m.cs.Incoming = false
	m.cs.Outgoing = false
	m.cs.ConversationID = ev.ID
	m.cs.DisplayName = name
	m.cs.CounterpartNumber = ev.CounterpartNumber
	if ev.Owner != "" {
		m.cs.OwnerExtension = ev.Owner
	}
	if ev.StartTime != 0 {
		m.cs.setStartTime(ev.StartTime)
	} else {
		m.cs.setStartTime(time.Now().UnixMilli())
	}
	m.stopRingtone()
	m.transitionTo(StateAccepted)

	m.ledger.Add(TransferEntry{
		Kind:        KindTransferred,
		DisplayName: name,
		Number:      ev.CounterpartNumber,
		StartTime:   m.cs.StartTime,
	})
	// More than one transferred leg means a call switch just completed;
	// the transferred set is stale in bulk.
	if m.ledger.CountKind(KindTransferred) > 1 {
		m.ledger.DeleteTransferred()
	}
	m.cs.TransferCalls = m.ledger.Entries()

	if !wasAccepted {
		m.hub.Publish(notify.CallAnswered, map[string]string{
			"display_name": name,
			"number":       ev.CounterpartNumber,
		})
		m.hub.Publish(notify.CallStart, map[string]int64{
			"start_time": m.cs.StartTime,
		})
	}
}

// onBusyNotConnected handles a busy report without media: either an
// outbound call that started ringing remotely, or — during a transfer —
// a probe telling us whether the transfer leg still exists.
func (m *Machine) onBusyNotConnected(ev event.ConversationEvent, name string) {
	if m.cs.Transferring && !m.cs.TransferSwitching {
		if !m.ledger.Has(ev.CounterpartNumber) {
			m.cs.Transferring = false
			m.transitionTo(StateAccepted)
			m.hub.Publish(notify.TransferFailed, map[string]string{
				"number": ev.CounterpartNumber,
			})
		}
		return
	}

	if ev.Direction != event.DirectionOut {
		return
	}
	m.cs.OutgoingFromPush = true
	if !arbiter.Arbitrate(m.defaultDevice, m.cs.OutgoingFromPush, m.cs.OutgoingFromPeer, m.hasOnlineSecondary) {
		return
	}
	wasOutgoing := m.cs.Outgoing
	m.cs.Outgoing = true
	m.cs.ConversationID = ev.ID
	m.cs.DisplayName = name
	m.cs.CounterpartNumber = ev.CounterpartNumber
	m.cs.OwnerExtension = ev.Owner
	m.cs.Direction = event.DirectionOut
	m.transitionTo(StateRinging)
	if !wasOutgoing {
		m.hub.Publish(notify.OutgoingCallStarted, map[string]string{
			"display_name": name,
			"number":       ev.CounterpartNumber,
		})
	}
}

// onBusyRinging announces call-waiting ringing without touching state.
func (m *Machine) onBusyRinging(ev event.ConversationEvent, name string) {
	m.hub.Publish(notify.Ringing, map[string]string{
		"display_name": name,
		"number":       ev.CounterpartNumber,
	})
}

// onHold records the transfer destination once its identity is resolved.
func (m *Machine) onHold(ev event.ConversationEvent, name string) {
	if !m.cs.Transferring || ev.CounterpartNumber == "" || ev.CounterpartName == event.UnknownCounterpart {
		return
	}
	start := ev.StartTime
	if start == 0 {
		start = time.Now().UnixMilli()
	}
	m.ledger.Add(TransferEntry{
		Kind:        KindDestination,
		DisplayName: name,
		Number:      ev.CounterpartNumber,
		StartTime:   start,
	})
	m.cs.DisplayName = name
	m.cs.CounterpartNumber = ev.CounterpartNumber
	m.cs.setStartTime(start)
	m.cs.TransferCalls = m.ledger.Entries()
	m.selectView(ViewCall)
}

// onIdle resets everything once the extension is reported free and no
// owned extension still has a conversation.
func (m *Machine) onIdle() {
	owned := make([]string, 0, len(m.ownedExtens))
	for ex := range m.ownedExtens {
		owned = append(owned, ex)
	}
	if !m.snaps.IsFullyIdle(owned) {
		return
	}
	m.resetLocked()
	m.deviceBusyRecording = false
}

// transitionTo moves to next, logging transitions the table does not
// allow (they are applied anyway — push facts outrank our bookkeeping).
func (m *Machine) transitionTo(next State) {
	if m.state == next {
		return
	}
	if !m.state.CanTransitionTo(next) {
		log.Printf("SESSION: unusual transition %s → %s", m.state, next)
	}
	m.state = next
}

func (m *Machine) stopRingtone() {
	if m.ringing {
		m.ringer.Stop()
	}
	m.ringing = false
}

// ApplyRemoteStart merges a refreshed server-side view of the active
// call: only the start time is taken, and only when none is set yet.
func (m *Machine) ApplyRemoteStart(conversationID string, startTime int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conversationID != "" && conversationID != m.cs.ConversationID {
		return
	}
	m.cs.setStartTime(startTime)
}

// Reset returns the session to its empty default: the only destruction
// path for the call record. Idempotent.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

func (m *Machine) resetLocked() {
	m.cs = CallSession{}
	m.ledger.Clear()
	m.stopRingtone()
	m.urlOpened = false
	m.answeredElsewhere = false
	m.conferenceID = ""
	m.conferenceStartedLocal = false
	m.transitionTo(StateIdle)
}
