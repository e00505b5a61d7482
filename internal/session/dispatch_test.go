package session

import (
	"encoding/json"
	"testing"

	"github.com/pbxkit/softphone/internal/arbiter"
	"github.com/pbxkit/softphone/internal/event"
	"github.com/pbxkit/softphone/internal/notify"
)

func envelope(t *testing.T, name string, payload any) Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal %s: %v", name, err)
	}
	return Envelope{Name: name, Data: data}
}

func TestDispatchExtenUpdate(t *testing.T) {
	m, _, cancel := newTestMachine(arbiter.DevicePhysical, nil)
	defer cancel()

	m.Dispatch(envelope(t, event.TypeExtenUpdate, ringingUpdate("201", "300", "Bob", 0)))
	if !m.Session().Incoming {
		t.Fatal("extenUpdate envelope must reach the machine")
	}
}

func TestDispatchBadPayloadIsSkipped(t *testing.T) {
	m, _, cancel := newTestMachine(arbiter.DevicePhysical, nil)
	defer cancel()

	m.Dispatch(Envelope{Name: event.TypeExtenUpdate, Data: json.RawMessage(`{"conversations":`)})
	if m.Session().Incoming {
		t.Fatal("broken payload must not mutate the session")
	}

	// And the machine keeps consuming afterwards.
	m.Dispatch(envelope(t, event.TypeExtenUpdate, ringingUpdate("201", "300", "Bob", 0)))
	if !m.Session().Incoming {
		t.Fatal("machine must survive a broken payload")
	}
}

func TestDispatchUnknownEventIgnored(t *testing.T) {
	m, ch, cancel := newTestMachine(arbiter.DevicePhysical, nil)
	defer cancel()

	m.Dispatch(Envelope{Name: "somethingNew", Data: json.RawMessage(`{}`)})
	if len(drain(ch)) != 0 {
		t.Fatal("unknown events must be silently dropped")
	}
}

func TestHangupForCounterpartResets(t *testing.T) {
	m, ch, cancel := newTestMachine(arbiter.DevicePhysical, nil)
	defer cancel()

	m.HandleExtenUpdate(connectedUpdate("201", "300", "Bob", 1000))
	drain(ch)

	// Hangup of an unrelated leg announces the cause but keeps the call.
	m.Dispatch(envelope(t, event.TypeExtenHangup, event.ExtenHangup{
		CallerNum: "999", Cause: event.CauseNormalClearing,
	}))
	if !m.Session().Accepted {
		t.Fatal("unrelated hangup must not tear down the session")
	}
	ns := drain(ch)
	if countType(ns, notify.CallHangup) != 1 {
		t.Fatal("hangup must still be announced")
	}

	m.Dispatch(envelope(t, event.TypeExtenHangup, event.ExtenHangup{
		CallerNum: "300", Cause: event.CauseUserBusy,
	}))
	cs := m.Session()
	if cs.Accepted || cs.CounterpartNumber != "" {
		t.Fatalf("session not reset: %+v", cs)
	}
}

func TestHangupCarriesCauseDescription(t *testing.T) {
	m, ch, cancel := newTestMachine(arbiter.DevicePhysical, nil)
	defer cancel()

	m.Dispatch(envelope(t, event.TypeExtenHangup, event.ExtenHangup{
		CallerNum: "300", Cause: event.CauseUserBusy,
	}))
	ns := drain(ch)
	if len(ns) != 1 {
		t.Fatalf("notifications = %d, want 1", len(ns))
	}
	payload, ok := ns[0].Payload.(map[string]string)
	if !ok {
		t.Fatalf("payload type %T", ns[0].Payload)
	}
	if payload["description"] == "" || payload["description"] == event.CauseUserBusy {
		t.Fatalf("description = %q", payload["description"])
	}
}

func TestExtenConnectedElsewhereSilencesLocalView(t *testing.T) {
	ringer := &fakeRinger{}
	m, _, cancel := newTestMachine(arbiter.DevicePhysical, ringer)
	defer cancel()

	m.HandleExtenUpdate(ringingUpdate("201", "300", "Bob", 0))
	m.Dispatch(envelope(t, event.TypeExtenConnected, event.ExtenConnected{ExtenConnected: "92201"}))

	if !m.AnsweredElsewhere() {
		t.Fatal("answer on a foreign extension must flag answeredElsewhere")
	}
	if ringer.stops == 0 {
		t.Fatal("ringtone must be stopped")
	}
}

func TestExtenConnectedOwnExtensionIsNoop(t *testing.T) {
	m, _, cancel := newTestMachine(arbiter.DevicePhysical, nil)
	defer cancel()

	m.Dispatch(envelope(t, event.TypeExtenConnected, event.ExtenConnected{ExtenConnected: "201"}))
	if m.AnsweredElsewhere() {
		t.Fatal("answering on our own extension is not elsewhere")
	}
}

func TestTakeOverResetsSession(t *testing.T) {
	m, ch, cancel := newTestMachine(arbiter.DevicePhysical, nil)
	defer cancel()

	m.HandleExtenUpdate(connectedUpdate("201", "300", "Bob", 1000))
	drain(ch)

	m.Dispatch(Envelope{Name: event.TypeTakeOver, Data: json.RawMessage(`{}`)})
	if m.Session().Accepted {
		t.Fatal("takeOver must reset the session")
	}
	if countType(drain(ch), notify.TakeOver) != 1 {
		t.Fatal("take-over must be announced")
	}
}

func TestServerReloadedClearsSnapshots(t *testing.T) {
	m, ch, cancel := newTestMachine(arbiter.DevicePhysical, nil)
	defer cancel()

	m.HandleExtenUpdate(ringingUpdate("201", "300", "Bob", 0))
	m.Dispatch(Envelope{Name: event.TypeServerReloaded, Data: json.RawMessage(`{}`)})

	if len(m.Snapshots().Snapshot()) != 0 {
		t.Fatal("server reload must invalidate every snapshot")
	}
	if countType(drain(ch), notify.ServerReloaded) != 1 {
		t.Fatal("server-reloaded must be announced")
	}
}

func TestVoicemailCounter(t *testing.T) {
	m, ch, cancel := newTestMachine(arbiter.DevicePhysical, nil)
	defer cancel()

	m.Dispatch(envelope(t, event.TypeNewVoiceMessage, map[string]int{"counter": 3}))
	if m.VoicemailCount() != 3 {
		t.Fatalf("voicemail count = %d", m.VoicemailCount())
	}
	if countType(drain(ch), notify.VoicemailReceived) != 1 {
		t.Fatal("voicemail-received must fire")
	}
}

func TestStreamingSourceUpdate(t *testing.T) {
	m, ch, cancel := newTestMachine(arbiter.DevicePhysical, nil)
	defer cancel()

	m.Dispatch(envelope(t, event.TypeStreamingSourceEvent, map[string]string{
		"source": "door-1", "number": "600",
	}))
	if m.Session().StreamingSourceNumber != "600" {
		t.Fatalf("streaming number = %q", m.Session().StreamingSourceNumber)
	}
	if countType(drain(ch), notify.StreamingInformation) != 1 {
		t.Fatal("streaming-information must fire")
	}

	// Falls back to the source name when no number is attached.
	m.Dispatch(envelope(t, event.TypeStreamingSourceEvent, map[string]string{"source": "door-2"}))
	if m.Session().StreamingSourceNumber != "door-2" {
		t.Fatalf("streaming number = %q", m.Session().StreamingSourceNumber)
	}
}

func TestCallWebrtcRequested(t *testing.T) {
	m, ch, cancel := newTestMachine(arbiter.DevicePhysical, nil)
	defer cancel()

	m.Dispatch(envelope(t, event.TypeCallWebrtc, map[string]string{"number": "300"}))
	ns := drain(ch)
	if countType(ns, notify.CallWebrtcRequested) != 1 {
		t.Fatal("call-webrtc-requested must fire")
	}
}
