// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/vigil/internal/dispatch"
)

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + "/ws"
}

func TestWebSocketRequiresUserID(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ws")
	if err != nil {
		t.Fatalf("GET /ws: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestWebSocketReceivesAlerts(t *testing.T) {
	srv, _, hub := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL)+"?user_id=alice", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Wait for the hub registration to land.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectedCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered with hub")
		}
		time.Sleep(5 * time.Millisecond)
	}

	payload := dispatch.AlertPayload{
		Type:      dispatch.MessageTypeAlert,
		AlertID:   "a-1",
		Severity:  "high",
		Message:   "Risk score 75.0: suspicious activity from KeyLogger",
		RiskScore: 75,
	}
	if delivered := hub.SendToUser("alice", payload); delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got dispatch.AlertPayload
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != dispatch.MessageTypeAlert || got.AlertID != "a-1" || got.RiskScore != 75 {
		t.Errorf("received payload = %+v", got)
	}
}

func TestWebSocketUserIsolation(t *testing.T) {
	srv, _, hub := newTestServer(t)

	alice, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL)+"?user_id=alice", nil)
	if err != nil {
		t.Fatalf("dial alice: %v", err)
	}
	defer alice.Close()
	bob, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL)+"?user_id=bob", nil)
	if err != nil {
		t.Fatalf("dial bob: %v", err)
	}
	defer bob.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectedCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("clients never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.SendToUser("alice", dispatch.AlertPayload{Type: dispatch.MessageTypeAlert, AlertID: "only-alice"})

	alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got dispatch.AlertPayload
	if err := alice.ReadJSON(&got); err != nil {
		t.Fatalf("alice read: %v", err)
	}
	if got.AlertID != "only-alice" {
		t.Errorf("alice payload = %+v", got)
	}

	bob.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if err := bob.ReadJSON(&got); err == nil {
		t.Errorf("bob received alice's alert: %+v", got)
	}
}

func TestWebSocketOriginRejected(t *testing.T) {
	hub := dispatch.NewHub()
	ws := NewWebSocketHandler(hub, []string{"https://dashboard.example"})

	if ws.checkOrigin(&http.Request{Header: http.Header{"Origin": []string{"https://evil.example"}}}) {
		t.Error("unknown origin accepted")
	}
	if !ws.checkOrigin(&http.Request{Header: http.Header{"Origin": []string{"https://dashboard.example"}}}) {
		t.Error("allowed origin rejected")
	}
	if !ws.checkOrigin(&http.Request{Header: http.Header{}}) {
		t.Error("non-browser client without Origin rejected")
	}
}
