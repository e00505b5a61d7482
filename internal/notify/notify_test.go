package notify

import (
	"testing"
	"time"
)

func TestHubFanOut(t *testing.T) {
	h := NewHub()
	a, cancelA := h.Subscribe()
	b, cancelB := h.Subscribe()
	defer cancelA()
	defer cancelB()

	h.Publish(Ringing, map[string]string{"number": "300"})

	for _, ch := range []chan Notification{a, b} {
		select {
		case n := <-ch:
			if n.Type != Ringing {
				t.Fatalf("type = %q", n.Type)
			}
		default:
			t.Fatal("notification not delivered")
		}
	}
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	// Overfill the buffer; Publish must never stall the caller.
	for i := 0; i < cap(ch)+16; i++ {
		h.Publish(QueueUpdate, i)
	}
	if len(ch) != cap(ch) {
		t.Fatalf("buffered = %d, want full buffer %d", len(ch), cap(ch))
	}
}

func TestHubCancelIsIdempotent(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe()
	cancel()
	cancel()

	// Publishing after cancel must not panic on the closed channel.
	h.Publish(Error, nil)
}

func TestHistoryRecordsRecent(t *testing.T) {
	h := NewHub()
	hist := NewHistory(h, 4)
	defer hist.Close()

	for i := 0; i < 6; i++ {
		h.Publish(QueueUpdate, i)
	}

	// The history consumes asynchronously; poll until it catches up.
	var got []Notification
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got = hist.Recent()
		if len(got) == 4 && got[3].Payload.(int) == 5 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if len(got) != 4 {
		t.Fatalf("recent = %d, want capacity 4", len(got))
	}
	// Oldest entries were overwritten.
	if got[0].Payload.(int) != 2 || got[3].Payload.(int) != 5 {
		t.Fatalf("recent payloads = %v..%v", got[0].Payload, got[3].Payload)
	}
}

func TestHubClose(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	h.Close()

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}
	// Cancel after Close must be safe.
	cancel()
}
