// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

// Package dispatch delivers alerts to live client connections.
//
// The Hub keeps a registry of open channels keyed by user identity; a user
// may hold any number of concurrent channels (multi-device, multi-tab).
// SendToUser fans an alert payload out to every channel registered for that
// user; channels whose delivery fails are pruned after the fan-out loop.
// Delivery is best effort and never transactional with scoring or
// persistence.
//
// Client wraps one gorilla/websocket connection with the usual read/write
// pumps (ping/pong keepalive, write deadlines). The registry holds only a
// weak back-reference: removal is idempotent and a channel the Hub did not
// create never outlives its transport connection.
package dispatch
