// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package dispatch

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// startClientServer runs a websocket endpoint that registers each upgraded
// connection with the hub under the given user and starts its pumps. The
// server-side Client is delivered on the returned channel.
func startClientServer(t *testing.T, hub *Hub, userID string) (*httptest.Server, <-chan *Client) {
	t.Helper()

	clients := make(chan *Client, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		c := NewClient(hub, userID, conn)
		hub.Register(userID, c)
		c.Start()
		clients <- c
	}))
	t.Cleanup(srv.Close)
	return srv, clients
}

func dialTestServer(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestClientAnswersPing(t *testing.T) {
	hub := NewHub()
	srv, _ := startClientServer(t, hub, "u1")
	conn := dialTestServer(t, srv)

	if err := conn.WriteJSON(controlMessage{Type: MessageTypePing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	var reply AlertPayload
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if reply.Type != MessageTypePong {
		t.Errorf("reply type = %q, want %q", reply.Type, MessageTypePong)
	}
}

func TestClientPingAfterUnregisterDoesNotCrash(t *testing.T) {
	hub := NewHub()
	srv, clients := startClientServer(t, hub, "u1")
	conn := dialTestServer(t, srv)

	var c *Client
	select {
	case c = <-clients:
	case <-time.After(2 * time.Second):
		t.Fatal("server never registered a client")
	}

	// Remove the client while its read pump is still running, then land a
	// keepalive frame on it. The pump must drop or ignore the frame; a send
	// on a closed queue would panic and kill the whole process.
	hub.Unregister("u1", c)

	if err := conn.WriteJSON(controlMessage{Type: MessageTypePing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	// The write pump answers shutdown with a close frame; drain until the
	// connection drops so the pumps have provably processed the frame.
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	if got := hub.ConnectedCount(); got != 0 {
		t.Errorf("ConnectedCount = %d, want 0", got)
	}
}

func TestClientDisconnectUnregisters(t *testing.T) {
	hub := NewHub()
	srv, clients := startClientServer(t, hub, "u1")
	conn := dialTestServer(t, srv)

	select {
	case <-clients:
	case <-time.After(2 * time.Second):
		t.Fatal("server never registered a client")
	}
	if got := hub.ConnectedCount(); got != 1 {
		t.Fatalf("ConnectedCount = %d, want 1", got)
	}

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectedCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not unregistered after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
