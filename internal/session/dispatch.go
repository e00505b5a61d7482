package session

import (
	"encoding/json"
	"log"
	"time"

	"github.com/pbxkit/softphone/internal/event"
	"github.com/pbxkit/softphone/internal/notify"
)

// Envelope is a copy of push.Envelope — avoids importing internal/push.
// The adapter in main.go bridges the two.
type Envelope struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// Dispatch routes one push-channel envelope to its handler. Undecodable
// payloads are logged and skipped; no push event may wedge the session.
func (m *Machine) Dispatch(env Envelope) {
	switch env.Name {
	case event.TypeExtenUpdate:
		var u event.ExtenUpdate
		if !decode(env, &u) {
			return
		}
		m.HandleExtenUpdate(u)
	case event.TypeExtenHangup:
		var h event.ExtenHangup
		if !decode(env, &h) {
			return
		}
		m.HandleExtenHangup(h)
	case event.TypeExtenConnected:
		var c event.ExtenConnected
		if !decode(env, &c) {
			return
		}
		m.HandleExtenConnected(c)
	case event.TypeConfBridgeUpdate:
		var p struct {
			ID    string `json:"id"`
			Users []any  `json:"users"`
		}
		if !decode(env, &p) {
			return
		}
		m.handleConfBridgeUpdate(p.ID, len(p.Users))
	case event.TypeConfBridgeEnd:
		var p struct {
			ID string `json:"id"`
		}
		if !decode(env, &p) {
			return
		}
		m.handleConfBridgeEnd(p.ID)
	case event.TypeQueueUpdate:
		m.hub.Publish(notify.QueueUpdate, env.Data)
	case event.TypeQueueMemberUpdate:
		m.hub.Publish(notify.QueueMemberUpdate, env.Data)
	case event.TypeParkingUpdate:
		m.hub.Publish(notify.ParkingUpdate, env.Data)
	case event.TypeServerReloaded:
		// Every cached extension state is stale after a PBX reload.
		m.snaps.Clear()
		m.hub.Publish(notify.ServerReloaded, nil)
	case event.TypeTakeOver:
		m.Reset()
		m.hub.Publish(notify.TakeOver, env.Data)
	case event.TypeUpdateDefaultDevice:
		var p struct {
			Extension string `json:"extension"`
		}
		if !decode(env, &p) {
			return
		}
		m.handleUpdateDefaultDevice(p.Extension)
	case event.TypeCallWebrtc:
		var p struct {
			Number string `json:"number"`
		}
		if !decode(env, &p) {
			return
		}
		m.hub.Publish(notify.CallWebrtcRequested, map[string]string{"number": p.Number})
	case event.TypeNewVoiceMessage:
		var p struct {
			Counter int `json:"counter"`
		}
		if !decode(env, &p) {
			return
		}
		m.handleVoiceMessageCounter(p.Counter)
	case event.TypeStreamingSourceEvent:
		var p struct {
			Source string `json:"source"`
			Number string `json:"number"`
		}
		if !decode(env, &p) {
			return
		}
		m.handleStreamingSourceUpdate(p.Source, p.Number)
	default:
		log.Printf("SESSION: unhandled push event %q", env.Name)
	}
}

func decode(env Envelope, v any) bool {
	if err := json.Unmarshal(env.Data, v); err != nil {
		log.Printf("SESSION: decode %s: %v", env.Name, err)
		return false
	}
	return true
}

// HandleExtenHangup consumes the end of a call leg: it announces the
// cause, resets conference state the local user started, and tears the
// session down when the hung-up party is our counterpart.
func (m *Machine) HandleExtenHangup(h event.ExtenHangup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = time.Now()

	m.hub.Publish(notify.CallHangup, map[string]string{
		"caller_num":  h.CallerNum,
		"cause":       h.Cause,
		"description": event.CauseDescription(h.Cause),
	})

	if m.cs.Conferencing && m.conferenceStartedLocal {
		m.cs.Conferencing = false
		m.conferenceID = ""
		m.conferenceStartedLocal = false
		m.hub.Publish(notify.ConferenceFinished, nil)
	}

	active := m.cs.Incoming || m.cs.Outgoing || m.cs.Accepted
	if active && h.CallerNum != "" && h.CallerNum == m.cs.CounterpartNumber {
		m.resetLocked()
	}
}

// HandleExtenConnected suppresses the local call view when the call was
// answered from another device.
func (m *Machine) HandleExtenConnected(c event.ExtenConnected) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = time.Now()

	if c.ExtenConnected == "" || m.ownedExtens[c.ExtenConnected] {
		return
	}
	m.answeredElsewhere = true
	m.stopRingtone()
}

func (m *Machine) handleConfBridgeUpdate(id string, users int) {
	m.mu.Lock()
	m.conferenceID = id
	m.mu.Unlock()
	log.Printf("SESSION: conference %s has %d users", id, users)
}

func (m *Machine) handleConfBridgeEnd(id string) {
	m.mu.Lock()
	if id == "" || id == m.conferenceID {
		m.cs.Conferencing = false
		m.conferenceID = ""
		m.conferenceStartedLocal = false
		if m.cs.Accepted {
			m.transitionTo(StateAccepted)
		}
	}
	m.mu.Unlock()
	m.hub.Publish(notify.ConferenceFinished, map[string]string{"id": id})
}

func (m *Machine) handleUpdateDefaultDevice(exten string) {
	m.hub.Publish(notify.DefaultDeviceUpdated, map[string]string{"extension": exten})
}

func (m *Machine) handleVoiceMessageCounter(counter int) {
	m.mu.Lock()
	m.voicemailCount = counter
	m.mu.Unlock()
	m.hub.Publish(notify.VoicemailReceived, map[string]int{"counter": counter})
}

func (m *Machine) handleStreamingSourceUpdate(source, number string) {
	if number == "" {
		number = source
	}
	m.mu.Lock()
	m.cs.StreamingSourceNumber = number
	m.mu.Unlock()
	m.hub.Publish(notify.StreamingInformation, map[string]string{"number": number})
}

// VoicemailCount returns the last reported voicemail counter.
func (m *Machine) VoicemailCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voicemailCount
}
