// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package dispatch

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/vigil/internal/logging"
	"github.com/tomtom215/vigil/internal/metrics"
)

// Hub maintains the set of live alert channels per user and fans alert
// payloads out to them. All methods are safe for concurrent use; the
// registry is guarded by one coarse lock, which is sufficient at Vigil's
// connection counts.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

// Register adds a channel to the user's set, creating the set if absent.
func (h *Hub) Register(userID string, c *Client) {
	h.mu.Lock()
	set, ok := h.clients[userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[userID] = set
	}
	set[c] = struct{}{}
	total := h.countLocked()
	h.mu.Unlock()

	metrics.WebsocketClients.Set(float64(total))
	logging.Info().Str("user_id", userID).Int("total_clients", total).Msg("alert channel connected")
}

// Unregister removes a channel from the user's set; the user entry is
// dropped when its set empties. Unregistering an absent channel is a no-op.
func (h *Hub) Unregister(userID string, c *Client) {
	h.mu.Lock()
	removed := h.removeLocked(userID, c)
	total := h.countLocked()
	h.mu.Unlock()

	if removed {
		metrics.WebsocketClients.Set(float64(total))
		logging.Info().Str("user_id", userID).Int("total_clients", total).Msg("alert channel disconnected")
	}
}

// removeLocked deletes the channel and signals the client's pumps to stop.
// The send queue itself stays open: the read pump may still try to queue a
// pong after removal, and a send on a closed channel would crash the
// process.
func (h *Hub) removeLocked(userID string, c *Client) bool {
	set, ok := h.clients[userID]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	c.shutdown()
	if len(set) == 0 {
		delete(h.clients, userID)
	}
	return true
}

// SendToUser attempts delivery of the payload to every channel currently
// registered for the user and returns the number of successful deliveries.
// Channels whose delivery fails are pruned after the fan-out loop; one
// failing channel never blocks the others. Sending to a user with no
// channels is a no-op.
func (h *Hub) SendToUser(userID string, payload AlertPayload) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[userID]
	if !ok {
		return 0
	}

	// Snapshot in deterministic order; the set must not be mutated while
	// iterating it.
	targets := make([]*Client, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].id < targets[j].id })

	var delivered int
	var dead []*Client
	for _, c := range targets {
		select {
		case c.send <- payload:
			delivered++
		default:
			// Send queue full: the client stopped draining. Treat as a
			// failed delivery and prune.
			dead = append(dead, c)
		}
	}

	for _, c := range dead {
		h.removeLocked(userID, c)
		metrics.DeliveryFailures.Inc()
		logging.Warn().Str("user_id", userID).Msg("pruned unresponsive alert channel")
	}

	return delivered
}

// Broadcast sends the payload to every known user. The key set is
// snapshotted first so concurrent registrations or unregistrations during
// the broadcast cannot skip or duplicate a user beyond the snapshot.
func (h *Hub) Broadcast(payload AlertPayload) {
	h.mu.RLock()
	users := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		users = append(users, userID)
	}
	h.mu.RUnlock()

	sort.Strings(users)
	for _, userID := range users {
		h.SendToUser(userID, payload)
	}
}

// ConnectedCount returns the total number of open channels across all
// users, for health reporting.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.countLocked()
}

func (h *Hub) countLocked() int {
	var n int
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// UserCount returns the number of users with at least one open channel.
func (h *Hub) UserCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// String names the service in supervisor logs.
func (h *Hub) String() string { return "dispatch-hub" }

// Serve blocks until the context is canceled, then closes every client.
// This makes the hub a supervisable service: a supervisor restart gets a
// hub with no orphaned connections.
func (h *Hub) Serve(ctx context.Context) error {
	<-ctx.Done()
	closed := h.closeAll()
	logging.Info().
		Str("component", "dispatch-hub").
		Int("clients_closed", closed).
		Msg("alert hub stopped")
	return ctx.Err()
}

// closeAll drains the registry, signalling every client to shut down.
func (h *Hub) closeAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	var closed int
	for userID, set := range h.clients {
		for c := range set {
			c.shutdown()
			closed++
		}
		delete(h.clients, userID)
	}
	metrics.WebsocketClients.Set(0)
	return closed
}
