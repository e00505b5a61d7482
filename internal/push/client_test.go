package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pbxkit/softphone/internal/notify"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// pushServer is a minimal push endpoint: it records the auth header,
// sends the given envelopes on connect and acks every probe.
func pushServer(t *testing.T, sendOnConnect []Envelope, gotAuth *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotAuth != nil {
			*gotAuth = r.Header.Get("Authorization")
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, env := range sendOnConnect {
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		}
		for {
			var env Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			if env.Name == msgProbe {
				var p struct {
					ID string `json:"id"`
				}
				if json.Unmarshal(env.Data, &p) != nil {
					continue
				}
				ack, _ := json.Marshal(map[string]string{"id": p.ID})
				if err := conn.WriteJSON(Envelope{Name: msgProbeAck, Data: ack}); err != nil {
					return
				}
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitConnected(t *testing.T, ch chan notify.Notification) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case n := <-ch:
			if n.Type != notify.SocketStatus {
				continue
			}
			if p, ok := n.Payload.(map[string]string); ok && p["status"] == "connected" {
				return
			}
		case <-deadline:
			t.Fatal("client never connected")
		}
	}
}

func TestClientDeliversEnvelopes(t *testing.T) {
	payload, _ := json.Marshal(map[string]string{"exten": "201"})
	var gotAuth string
	srv := pushServer(t, []Envelope{{Name: "extenUpdate", Data: payload}}, &gotAuth)
	defer srv.Close()

	hub := notify.NewHub()
	c := New(wsURL(srv), "tok123", hub)
	defer c.Close()

	ch, cancel := c.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	c.Start(ctx)

	select {
	case env := <-ch:
		if env.Name != "extenUpdate" {
			t.Fatalf("envelope name = %q", env.Name)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no envelope delivered")
	}
	if gotAuth != "Bearer tok123" {
		t.Fatalf("auth header = %q", gotAuth)
	}
}

func TestSendWithoutConnection(t *testing.T) {
	c := New("ws://unused", "", notify.NewHub())
	if err := c.send(Envelope{Name: "x"}); !errors.Is(err, errNotConnected) {
		t.Fatalf("err = %v, want errNotConnected", err)
	}
}

func TestProbeSendFailureRaisesAlert(t *testing.T) {
	hub := notify.NewHub()
	nch, ncancel := hub.Subscribe()
	defer ncancel()

	// Never started: no connection, so the probe send fails immediately.
	c := New("ws://127.0.0.1:1/ws", "", hub)
	c.probeOnce(context.Background())

	if !c.AlertDown() {
		t.Fatal("failed probe must raise the alert")
	}

	select {
	case n := <-nch:
		p, ok := n.Payload.(map[string]string)
		if !ok || p["channel"] != "down" {
			t.Fatalf("unexpected notification %+v", n)
		}
	default:
		t.Fatal("channel-down notification missing")
	}

	// Alert edges only: a second failure is silent.
	c.probeOnce(context.Background())
	select {
	case n := <-nch:
		t.Fatalf("unexpected second notification %+v", n)
	default:
	}
}

func TestProbeAckClearsAlert(t *testing.T) {
	srv := pushServer(t, nil, nil)
	defer srv.Close()

	hub := notify.NewHub()
	nch, ncancel := hub.Subscribe()
	defer ncancel()

	c := New(wsURL(srv), "", hub)
	defer c.Close()
	c.setAlert(true)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	c.Start(ctx)
	waitConnected(t, nch)

	c.probeOnce(ctx)
	if c.AlertDown() {
		t.Fatal("acked probe must clear the alert")
	}
}

func TestResolveUnknownProbeIsNoop(t *testing.T) {
	c := New("ws://unused", "", notify.NewHub())
	c.resolveProbe("no-such-id")
}

func TestSubscribeCancelIsIdempotent(t *testing.T) {
	c := New("ws://unused", "", notify.NewHub())
	_, cancel := c.Subscribe()
	cancel()
	cancel()
}
