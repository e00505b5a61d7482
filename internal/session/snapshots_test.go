package session

import (
	"testing"

	"github.com/pbxkit/softphone/internal/event"
)

func TestSnapshotReplaceIsWholesale(t *testing.T) {
	tbl := NewSnapshotTable()
	tbl.Replace(event.ExtenUpdate{
		Exten:    "201",
		Username: "alice",
		Status:   event.StatusBusy,
		Conversations: map[string]event.Conversation{
			"c1": {CounterpartNum: "300", Status: event.StatusBusy, Connected: true},
		},
	})
	tbl.Replace(event.ExtenUpdate{
		Exten:    "201",
		Username: "alice",
		Status:   event.StatusOnline,
	})

	s, ok := tbl.Get("201")
	if !ok {
		t.Fatal("snapshot missing")
	}
	if len(s.Conversations) != 0 {
		t.Fatalf("conversations = %d, want 0 after wholesale replace", len(s.Conversations))
	}
	if s.Status != event.StatusOnline {
		t.Fatalf("status = %q", s.Status)
	}
}

func TestSnapshotIsFullyIdle(t *testing.T) {
	tbl := NewSnapshotTable()
	owned := []string{"201", "202"}

	if !tbl.IsFullyIdle(owned) {
		t.Fatal("extensions with no snapshot count as idle")
	}

	tbl.Replace(event.ExtenUpdate{
		Exten:  "202",
		Status: event.StatusRinging,
		Conversations: map[string]event.Conversation{
			"c1": {CounterpartNum: "300", Status: event.StatusRinging},
		},
	})
	if tbl.IsFullyIdle(owned) {
		t.Fatal("202 still has a conversation")
	}

	// A busy extension we do not own must not block idleness.
	tbl.Replace(event.ExtenUpdate{Exten: "202", Status: event.StatusOnline})
	tbl.Replace(event.ExtenUpdate{
		Exten:  "999",
		Status: event.StatusBusy,
		Conversations: map[string]event.Conversation{
			"c2": {CounterpartNum: "300", Status: event.StatusBusy},
		},
	})
	if !tbl.IsFullyIdle(owned) {
		t.Fatal("foreign extensions must be ignored")
	}
}

func TestSnapshotRemoveAndClear(t *testing.T) {
	tbl := NewSnapshotTable()
	tbl.Replace(event.ExtenUpdate{Exten: "201", Status: event.StatusOnline})
	tbl.Replace(event.ExtenUpdate{Exten: "202", Status: event.StatusOnline})

	tbl.Remove("201")
	if _, ok := tbl.Get("201"); ok {
		t.Fatal("201 should be removed")
	}
	if _, ok := tbl.Get("202"); !ok {
		t.Fatal("202 should survive")
	}

	tbl.Clear()
	if len(tbl.Snapshot()) != 0 {
		t.Fatal("clear must drop all snapshots")
	}
}
