// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package dispatch

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/vigil/internal/logging"
	"github.com/tomtom215/vigil/internal/models"
)

//nolint:gochecknoinits // init ensures quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Output: io.Discard})
}

// newTestClient builds a hub client without a websocket connection. The
// queue capacity controls delivery behavior: 0 makes every send fail.
func newTestClient(hub *Hub, userID string, queue int) *Client {
	return &Client{
		id:     clientIDCounter.Add(1),
		userID: userID,
		hub:    hub,
		send:   make(chan AlertPayload, queue),
		done:   make(chan struct{}),
	}
}

// shutdownSignalled reports whether the client's done channel is closed.
func shutdownSignalled(c *Client) bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func testPayload() AlertPayload {
	alert := &models.Alert{
		ID:        uuid.New(),
		UserID:    "u1",
		AlertType: models.AlertTypeHighRiskBehavior,
		Severity:  models.SeverityHigh,
		Message:   "Risk score 75.5: suspicious activity from TestApp",
		RiskScore: 75.5,
	}
	return NewAlertPayload(alert)
}

func TestHub_RegisterAndCount(t *testing.T) {
	hub := NewHub()
	if hub.ConnectedCount() != 0 || hub.UserCount() != 0 {
		t.Fatal("new hub must be empty")
	}

	hub.Register("u1", newTestClient(hub, "u1", 8))
	hub.Register("u1", newTestClient(hub, "u1", 8))
	hub.Register("u2", newTestClient(hub, "u2", 8))

	if got := hub.ConnectedCount(); got != 3 {
		t.Errorf("ConnectedCount = %d, want 3", got)
	}
	if got := hub.UserCount(); got != 2 {
		t.Errorf("UserCount = %d, want 2", got)
	}
}

func TestHub_UnregisterIdempotent(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub, "u1", 8)
	hub.Register("u1", c)

	hub.Unregister("u1", c)
	if hub.ConnectedCount() != 0 {
		t.Errorf("ConnectedCount = %d, want 0", hub.ConnectedCount())
	}
	if hub.UserCount() != 0 {
		t.Error("empty user entry must be removed")
	}

	// Absent channel and absent user are both no-ops.
	hub.Unregister("u1", c)
	hub.Unregister("ghost", newTestClient(hub, "ghost", 8))
}

func TestHub_SendToUser(t *testing.T) {
	t.Run("no channels is a no-op", func(t *testing.T) {
		hub := NewHub()
		if got := hub.SendToUser("nobody", testPayload()); got != 0 {
			t.Errorf("delivered = %d, want 0", got)
		}
	})

	t.Run("delivers to all of the user's channels only", func(t *testing.T) {
		hub := NewHub()
		a := newTestClient(hub, "u1", 8)
		b := newTestClient(hub, "u1", 8)
		other := newTestClient(hub, "u2", 8)
		hub.Register("u1", a)
		hub.Register("u1", b)
		hub.Register("u2", other)

		if got := hub.SendToUser("u1", testPayload()); got != 2 {
			t.Errorf("delivered = %d, want 2", got)
		}
		if len(a.send) != 1 || len(b.send) != 1 {
			t.Error("both u1 channels should hold the payload")
		}
		if len(other.send) != 0 {
			t.Error("u2 channel must not receive u1 alerts")
		}
	})

	t.Run("failing channel pruned, others unaffected", func(t *testing.T) {
		hub := NewHub()
		healthy := newTestClient(hub, "u1", 8)
		stuck := newTestClient(hub, "u1", 0)
		hub.Register("u1", healthy)
		hub.Register("u1", stuck)

		if got := hub.SendToUser("u1", testPayload()); got != 1 {
			t.Errorf("delivered = %d, want 1", got)
		}
		if hub.ConnectedCount() != 1 {
			t.Errorf("ConnectedCount = %d, want 1 after pruning", hub.ConnectedCount())
		}
		if len(healthy.send) != 1 {
			t.Error("healthy channel should still receive the payload")
		}
		// The pruned client is told to shut down; its queue stays open so
		// late pong sends cannot panic.
		if !shutdownSignalled(stuck) {
			t.Error("stuck client should be signalled to shut down")
		}
		if shutdownSignalled(healthy) {
			t.Error("healthy client must not be shut down")
		}
	})
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()
	clients := make([]*Client, 0, 4)
	for i := 0; i < 4; i++ {
		c := newTestClient(hub, fmt.Sprintf("u%d", i), 8)
		hub.Register(c.userID, c)
		clients = append(clients, c)
	}

	hub.Broadcast(testPayload())
	for _, c := range clients {
		if len(c.send) != 1 {
			t.Errorf("user %s did not receive broadcast", c.userID)
		}
	}
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := fmt.Sprintf("u%d", n%4)
			for j := 0; j < 50; j++ {
				c := newTestClient(hub, userID, 1)
				hub.Register(userID, c)
				hub.SendToUser(userID, testPayload())
				hub.Unregister(userID, c)
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			hub.Broadcast(testPayload())
		}
	}()

	wg.Wait()
	// Every goroutine unregistered what it registered.
	if got := hub.ConnectedCount(); got != 0 {
		t.Errorf("ConnectedCount = %d, want 0 after all unregisters", got)
	}
}

func TestHub_ServeClosesClientsOnCancel(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub, "u1", 8)
	hub.Register("u1", c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	if hub.ConnectedCount() != 0 {
		t.Error("clients should be closed on shutdown")
	}
	if !shutdownSignalled(c) {
		t.Error("client should be signalled to shut down")
	}
}

func TestNewAlertPayload(t *testing.T) {
	alert := &models.Alert{
		ID:             uuid.New(),
		AlertType:      models.AlertTypeHighRiskBehavior,
		Severity:       models.SeverityCritical,
		Message:        "msg",
		Recommendation: "act",
		RiskScore:      91.2,
	}
	p := NewAlertPayload(alert)

	if p.Type != MessageTypeAlert {
		t.Errorf("Type = %q, want %q", p.Type, MessageTypeAlert)
	}
	if p.AlertID != alert.ID.String() {
		t.Errorf("AlertID = %q, want %q", p.AlertID, alert.ID.String())
	}
	if p.Severity != "critical" || p.RiskScore != 91.2 {
		t.Errorf("payload fields not carried over: %+v", p)
	}
	if _, err := time.Parse(time.RFC3339, p.Timestamp); err != nil {
		t.Errorf("Timestamp %q is not RFC 3339: %v", p.Timestamp, err)
	}
}
