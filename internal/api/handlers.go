// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

// Package api provides HTTP routing and handlers using the Chi router.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/vigil/internal/cache"
	"github.com/tomtom215/vigil/internal/config"
	"github.com/tomtom215/vigil/internal/models"
	"github.com/tomtom215/vigil/internal/store"
)

// Reader is the read-side store surface the handlers query.
type Reader interface {
	GetAssessment(ctx context.Context, userID string) (*models.RiskAssessment, error)
	ListAlerts(ctx context.Context, userID string, limit int) ([]models.Alert, error)
	RecentEvents(ctx context.Context, userID string, limit int) ([]models.Event, error)
}

// Directory provisions and reads monitored users. Users created with
// consent are picked up by the background monitor on its next pass.
type Directory interface {
	SaveUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// Ingestor is the write-side ingest path.
type Ingestor interface {
	Ingest(ctx context.Context, e *models.Event, source string) (*models.RiskAssessment, error)
}

// ClientCounter reports live websocket connections for the health endpoint.
type ClientCounter interface {
	ConnectedCount() int
}

const (
	defaultListLimit = 50
	maxListLimit     = 500

	readCacheTTL = 10 * time.Second
)

// Handler holds the dependencies of all HTTP handlers.
type Handler struct {
	cfg     *config.Config
	reader  Reader
	users   Directory
	ingest  Ingestor
	hub     ClientCounter
	cache   *cache.Cache
	started time.Time
}

// NewHandler wires the HTTP handlers. hub may be nil in tests that do not
// exercise websockets.
func NewHandler(cfg *config.Config, reader Reader, users Directory, ingest Ingestor, hub ClientCounter) *Handler {
	return &Handler{
		cfg:     cfg,
		reader:  reader,
		users:   users,
		ingest:  ingest,
		hub:     hub,
		cache:   cache.New(readCacheTTL),
		started: time.Now(),
	}
}

// Close releases handler-owned resources (the read cache's cleanup
// goroutine).
func (h *Handler) Close() {
	h.cache.Stop()
}

// Health reports liveness plus coarse runtime state.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	connected := 0
	if h.hub != nil {
		connected = h.hub.ConnectedCount()
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"status":            "ok",
		"uptime_seconds":    int64(time.Since(h.started).Seconds()),
		"connected_clients": connected,
		"monitor_enabled":   h.cfg.Monitor.Enabled,
	}, false)
}

// IngestEvent accepts one behavioral event and returns the resulting
// risk assessment.
func (h *Handler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	assessment, err := h.ingest.Ingest(r.Context(), req.ToEvent(), "api")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INGEST_FAILED", "failed to process event", err)
		return
	}

	// New data invalidates this user's cached reads.
	h.cache.DeletePrefix("user:" + req.UserID + ":")

	respondData(w, http.StatusCreated, assessment, false)
}

// CreateUser provisions a monitored user. This is how users enter the
// system; the background monitor only simulates activity for users created
// here with consent_given set.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	user := req.ToUser()
	if err := h.users.SaveUser(r.Context(), user); err != nil {
		respondError(w, http.StatusInternalServerError, "SAVE_FAILED", "failed to save user", err)
		return
	}

	respondData(w, http.StatusCreated, user, false)
}

// GetUserProfile returns one provisioned user record.
func (h *Handler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	user, err := h.users.GetUser(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "user does not exist", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to load user", err)
		return
	}
	respondData(w, http.StatusOK, user, false)
}

// UserRisk returns the latest assessment for a user.
func (h *Handler) UserRisk(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	cacheKey := "user:" + userID + ":risk"

	if cached, ok := h.cache.Get(cacheKey); ok {
		respondData(w, http.StatusOK, cached, true)
		return
	}

	assessment, err := h.reader.GetAssessment(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "no assessment for user", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to load assessment", err)
		return
	}

	h.cache.Set(cacheKey, assessment)
	respondData(w, http.StatusOK, assessment, false)
}

// UserAlerts returns the alert history for a user, newest first.
func (h *Handler) UserAlerts(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	limit := listLimit(r)
	cacheKey := cache.GenerateKey("user:"+userID+":alerts", limit)

	if cached, ok := h.cache.Get(cacheKey); ok {
		respondData(w, http.StatusOK, cached, true)
		return
	}

	alerts, err := h.reader.ListAlerts(r.Context(), userID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to load alerts", err)
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}

	h.cache.Set(cacheKey, alerts)
	respondData(w, http.StatusOK, alerts, false)
}

// UserEvents returns the recent event window for a user, newest first.
func (h *Handler) UserEvents(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	events, err := h.reader.RecentEvents(r.Context(), userID, listLimit(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to load events", err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	respondData(w, http.StatusOK, events, false)
}

// listLimit parses the optional limit query parameter, clamped to
// [1, maxListLimit].
func listLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
