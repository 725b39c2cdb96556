// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/vigil/internal/dispatch"
	"github.com/tomtom215/vigil/internal/logging"
)

// WebSocketHandler upgrades connections and registers them with the
// alert dispatch hub.
type WebSocketHandler struct {
	cfg *wsConfig
	hub *dispatch.Hub
}

type wsConfig struct {
	allowedOrigins []string
}

// NewWebSocketHandler builds the /ws handler. allowedOrigins follows the
// CORS origin list; "*" allows any origin.
func NewWebSocketHandler(hub *dispatch.Hub, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		cfg: &wsConfig{allowedOrigins: allowedOrigins},
		hub: hub,
	}
}

func (h *WebSocketHandler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkOrigin validates the connection origin. Browser websockets always
// send an Origin header; requests without one come from non-browser
// clients and are allowed.
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("websocket connection rejected from unauthorized origin")
	return false
}

// ServeHTTP handles GET /ws?user_id=. The connection receives this user's
// alerts until either side closes it.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "MISSING_USER_ID", "user_id query parameter is required", nil)
		return
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := dispatch.NewClient(h.hub, userID, conn)
	h.hub.Register(userID, client)
	client.Start()

	logging.Debug().Str("user_id", userID).Msg("websocket client connected")
}
