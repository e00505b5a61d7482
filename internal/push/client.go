// Package push implements the client side of the PBX server-push channel:
// a websocket that delivers named events, reconnects forever on transport
// errors, and carries an acknowledged reachability probe.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pbxkit/softphone/internal/notify"
)

// errNotConnected is returned by send while no connection is up.
var errNotConnected = errors.New("push: not connected")

const (
	// reconnectDelay is the fixed pause between reconnection attempts.
	// Retries are unlimited; a dead push channel is never fatal.
	reconnectDelay = 2 * time.Second

	// probeInterval and probeTimeout govern the reachability probe: one
	// probe every 7 seconds, each with a 7 second ack deadline.
	probeInterval = 7 * time.Second
	probeTimeout  = 7 * time.Second

	writeTimeout = 5 * time.Second
)

// Wire message names reserved for the probe.
const (
	msgProbe    = "probe"
	msgProbeAck = "probeAck"
)

// Envelope is one named event on the push channel.
type Envelope struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// Client maintains the push-channel connection.
type Client struct {
	url   string
	token string
	hub   *notify.Hub

	mu   sync.Mutex
	conn *websocket.Conn

	listenerMu sync.RWMutex
	listeners  map[chan Envelope]struct{}

	// Pending probe acks: probe id → channel closed when the ack arrives.
	ackMu   sync.Mutex
	pending map[string]chan struct{}

	alertMu   sync.Mutex
	alertDown bool

	done chan struct{}
}

// New creates a push client for url, authenticating with token.
func New(url, token string, hub *notify.Hub) *Client {
	return &Client{
		url:       url,
		token:     token,
		hub:       hub,
		listeners: make(map[chan Envelope]struct{}),
		pending:   make(map[string]chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs the connect/read/reconnect loop until ctx is canceled or
// Close is called.
func (c *Client) Start(ctx context.Context) {
	go c.run(ctx)
}

// Subscribe returns a channel receiving push envelopes and a cancel
// function. Sends never block; a slow subscriber loses events.
func (c *Client) Subscribe() (ch chan Envelope, cancel func()) {
	ch = make(chan Envelope, 128)

	c.listenerMu.Lock()
	c.listeners[ch] = struct{}{}
	c.listenerMu.Unlock()

	cancel = func() {
		c.listenerMu.Lock()
		if _, ok := c.listeners[ch]; ok {
			delete(c.listeners, ch)
			close(ch)
		}
		c.listenerMu.Unlock()
	}
	return ch, cancel
}

// Close tears the client down.
func (c *Client) Close() {
	select {
	case <-c.done:
		return
	default:
		close(c.done)
	}
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()
}

func (c *Client) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		hdr := http.Header{}
		if c.token != "" {
			hdr.Set("Authorization", "Bearer "+c.token)
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, hdr)
		if err != nil {
			log.Printf("PUSH: dial %s: %v (retrying in %s)", c.url, err, reconnectDelay)
			c.hub.Publish(notify.SocketStatus, map[string]string{"status": "disconnected"})
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		log.Printf("PUSH: connected to %s", c.url)
		c.hub.Publish(notify.SocketStatus, map[string]string{"status": "connected"})

		probeCtx, stopProbe := context.WithCancel(ctx)
		go c.probeLoop(probeCtx)

		c.readLoop(conn)
		stopProbe()

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()

		c.hub.Publish(notify.SocketStatus, map[string]string{"status": "disconnected"})

		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// readLoop reads envelopes until the connection fails. Probe acks are
// routed to their waiters; everything else fans out to subscribers.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			log.Printf("PUSH: read: %v", err)
			conn.Close()
			return
		}

		if env.Name == msgProbeAck {
			var ack struct {
				ID string `json:"id"`
			}
			if json.Unmarshal(env.Data, &ack) == nil {
				c.resolveProbe(ack.ID)
			}
			continue
		}

		c.listenerMu.RLock()
		for ch := range c.listeners {
			select {
			case ch <- env:
			default:
				log.Printf("PUSH: listener full, dropping %s", env.Name)
			}
		}
		c.listenerMu.RUnlock()
	}
}

// send writes one envelope on the current connection.
func (c *Client) send(env Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(env)
}

func (c *Client) resolveProbe(id string) {
	c.ackMu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.ackMu.Unlock()
	if ok {
		close(ch)
	}
}
