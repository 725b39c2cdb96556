// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package dispatch

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/vigil/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024

	// sendQueueSize bounds the per-client delivery queue; a client that
	// falls this far behind is pruned on the next send.
	sendQueueSize = 64
)

// clientIDCounter hands out monotonically increasing IDs so fan-out can
// iterate clients in a stable order.
var clientIDCounter atomic.Uint64

// Client binds one websocket connection to one user identity and pumps
// alert payloads from the hub to the wire.
//
// The send queue is never closed: both pumps can outlive the client's hub
// registration, so shutdown is signalled through done instead. A payload
// queued after shutdown is simply never drained.
type Client struct {
	id     uint64
	userID string
	hub    *Hub
	conn   *websocket.Conn
	send   chan AlertPayload

	done     chan struct{}
	doneOnce sync.Once
}

// NewClient wraps an upgraded connection for the given user. The caller
// must Register the client with the hub and then call Start.
func NewClient(hub *Hub, userID string, conn *websocket.Conn) *Client {
	return &Client{
		id:     clientIDCounter.Add(1),
		userID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan AlertPayload, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// shutdown signals both pumps to stop. Idempotent; the hub calls it on
// unregister, prune and supervisor shutdown.
func (c *Client) shutdown() {
	c.doneOnce.Do(func() { close(c.done) })
}

// UserID returns the user identity this channel belongs to.
func (c *Client) UserID() string {
	return c.userID
}

// Start launches the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump consumes client frames until the connection drops, answering
// keepalive pings. It owns unregistration on exit.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c.userID, c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg controlMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Str("user_id", c.userID).Msg("unexpected websocket close")
			}
			return
		}
		if msg.Type == MessageTypePing {
			select {
			case c.send <- AlertPayload{Type: MessageTypePong}:
			case <-c.done:
				return
			default:
			}
		}
	}
}

// writePump moves payloads from the send queue onto the wire and keeps the
// connection alive with protocol-level pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case payload := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if err := c.conn.WriteJSON(payload); err != nil {
				logging.Error().Err(err).Str("user_id", c.userID).Msg("failed to write alert payload")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
