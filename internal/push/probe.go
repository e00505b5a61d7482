package push

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/pbxkit/softphone/internal/notify"
)

// probeLoop emits one low-priority reachability probe per interval and
// waits for its ack. A missed deadline raises the channel-down alert; a
// later successful probe clears it. The probe deadline is this system's
// only cancellation primitive.
func (c *Client) probeLoop(ctx context.Context) {
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			c.probeOnce(ctx)
		}
	}
}

func (c *Client) probeOnce(ctx context.Context) {
	id := uuid.NewString()

	ackCh := make(chan struct{})
	c.ackMu.Lock()
	c.pending[id] = ackCh
	c.ackMu.Unlock()

	defer func() {
		c.ackMu.Lock()
		delete(c.pending, id)
		c.ackMu.Unlock()
	}()

	data, _ := json.Marshal(map[string]string{"id": id})
	if err := c.send(Envelope{Name: msgProbe, Data: data}); err != nil {
		log.Printf("PUSH: probe send: %v", err)
		c.setAlert(true)
		return
	}

	select {
	case <-ctx.Done():
	case <-ackCh:
		c.setAlert(false)
	case <-time.After(probeTimeout):
		log.Printf("PUSH: probe %s timed out", id[:8])
		c.setAlert(true)
	}
}

// setAlert raises or clears the channel-down alert, notifying only on
// edges. The alert is user-visible and never fatal.
func (c *Client) setAlert(down bool) {
	c.alertMu.Lock()
	changed := c.alertDown != down
	c.alertDown = down
	c.alertMu.Unlock()
	if !changed {
		return
	}
	status := "up"
	if down {
		status = "down"
	}
	c.hub.Publish(notify.SocketStatus, map[string]string{"channel": status})
}

// AlertDown reports whether the channel-down alert is currently raised.
func (c *Client) AlertDown() bool {
	c.alertMu.Lock()
	defer c.alertMu.Unlock()
	return c.alertDown
}
