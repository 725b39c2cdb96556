// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/vigil/internal/dispatch"
	"github.com/tomtom215/vigil/internal/models"
	"github.com/tomtom215/vigil/internal/risk"
	"github.com/tomtom215/vigil/internal/store"
)

type recordingSender struct {
	mu       sync.Mutex
	payloads []dispatch.AlertPayload
}

func (r *recordingSender) SendToUser(userID string, p dispatch.AlertPayload) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
	return 1
}

func (r *recordingSender) sent() []dispatch.AlertPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dispatch.AlertPayload(nil), r.payloads...)
}

type failingNotifier struct {
	calls int
}

func (f *failingNotifier) Enabled() bool { return true }

func (f *failingNotifier) Notify(ctx context.Context, p dispatch.AlertPayload) error {
	f.calls++
	return errors.New("endpoint unreachable")
}

func newTestIngestor(t *testing.T, cfg Config, sender AlertSender, notifier Notifier) (*Ingestor, *store.Store) {
	t.Helper()
	s, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	engine := risk.NewEngine(nil)
	return NewIngestor(cfg, s, s, s, engine, sender, notifier), s
}

func benignEvent(userID string) *models.Event {
	return &models.Event{
		UserID:              userID,
		AppName:             "Notes",
		PermissionRequested: models.PermissionNone,
	}
}

func hostileEvent(userID string) *models.Event {
	return &models.Event{
		UserID:               userID,
		AppName:              "SuspiciousVPN",
		PermissionRequested:  "camera",
		NetworkActivityLevel: 100,
		BackgroundProcess:    true,
		AnomalyFlag:          true,
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.WindowSize != 50 {
		t.Errorf("default window size = %d, want 50", cfg.WindowSize)
	}
	if cfg.AlertThreshold != 70 {
		t.Errorf("default alert threshold = %v, want 70", cfg.AlertThreshold)
	}
}

func TestIngestStoresEventAndAssessment(t *testing.T) {
	ing, s := newTestIngestor(t, Config{}, nil, nil)
	ctx := context.Background()

	a, err := ing.Ingest(ctx, benignEvent("alice"), "api")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if a.UserID != "alice" {
		t.Errorf("assessment UserID = %q, want alice", a.UserID)
	}
	if a.Score != 0 {
		t.Errorf("benign score = %v, want 0", a.Score)
	}
	if a.Level != models.RiskLevelLow {
		t.Errorf("level = %q, want low", a.Level)
	}

	events, err := s.AllEvents(ctx, "alice")
	if err != nil {
		t.Fatalf("AllEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d stored events, want 1", len(events))
	}

	stored, err := s.GetAssessment(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAssessment: %v", err)
	}
	if stored.Score != a.Score {
		t.Errorf("stored score = %v, want %v", stored.Score, a.Score)
	}

	alerts, err := s.ListAlerts(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("benign ingest emitted %d alerts, want 0", len(alerts))
	}
}

func TestIngestDefaultsMissingFields(t *testing.T) {
	ing, s := newTestIngestor(t, Config{}, nil, nil)
	ctx := context.Background()

	e := &models.Event{UserID: "bob", AppName: "Maps"}
	if _, err := ing.Ingest(ctx, e, "api"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if e.ID == uuid.Nil {
		t.Error("event ID not assigned")
	}
	if e.Timestamp.IsZero() {
		t.Error("event timestamp not assigned")
	}
	if e.PermissionRequested != models.PermissionNone {
		t.Errorf("permission = %q, want %q", e.PermissionRequested, models.PermissionNone)
	}

	events, err := s.AllEvents(ctx, "bob")
	if err != nil {
		t.Fatalf("AllEvents: %v", err)
	}
	if len(events) != 1 || events[0].ID != e.ID {
		t.Errorf("stored event does not match defaulted input")
	}
}

func TestIngestEmitsAlertAboveThreshold(t *testing.T) {
	sender := &recordingSender{}
	ing, s := newTestIngestor(t, Config{}, sender, nil)
	ctx := context.Background()

	a, err := ing.Ingest(ctx, hostileEvent("mallory"), "monitor")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if a.Score <= DefaultAlertThreshold {
		t.Fatalf("hostile score = %v, want > %v", a.Score, DefaultAlertThreshold)
	}

	alerts, err := s.ListAlerts(ctx, "mallory", 0)
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	alert := alerts[0]
	if alert.AlertType != models.AlertTypeHighRiskBehavior {
		t.Errorf("alert type = %q", alert.AlertType)
	}
	if alert.RiskScore != a.Score {
		t.Errorf("alert score = %v, want %v", alert.RiskScore, a.Score)
	}
	if alert.Recommendation != a.Recommendation {
		t.Errorf("alert recommendation does not match assessment")
	}

	sent := sender.sent()
	if len(sent) != 1 {
		t.Fatalf("sender received %d payloads, want 1", len(sent))
	}
	p := sent[0]
	if p.Type != dispatch.MessageTypeAlert {
		t.Errorf("payload type = %q, want %q", p.Type, dispatch.MessageTypeAlert)
	}
	if p.AlertID != alert.ID.String() {
		t.Errorf("payload alert_id = %q, want %q", p.AlertID, alert.ID)
	}
	if p.RiskScore != a.Score {
		t.Errorf("payload risk_score = %v, want %v", p.RiskScore, a.Score)
	}
}

func TestNotifierFailureDoesNotFailIngest(t *testing.T) {
	notifier := &failingNotifier{}
	ing, _ := newTestIngestor(t, Config{}, nil, notifier)

	a, err := ing.Ingest(context.Background(), hostileEvent("mallory"), "api")
	if err != nil {
		t.Fatalf("Ingest returned error despite best-effort delivery: %v", err)
	}
	if a == nil || a.Score <= DefaultAlertThreshold {
		t.Fatalf("expected high-risk assessment, got %+v", a)
	}
	if notifier.calls != 1 {
		t.Errorf("notifier called %d times, want 1", notifier.calls)
	}
}

func TestIngestScoresOnlyRecentWindow(t *testing.T) {
	ing, _ := newTestIngestor(t, Config{WindowSize: 1}, nil, nil)
	ctx := context.Background()

	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	hostile := hostileEvent("carol")
	hostile.Timestamp = base
	if _, err := ing.Ingest(ctx, hostile, "api"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	benign := benignEvent("carol")
	benign.Timestamp = base.Add(time.Minute)
	a, err := ing.Ingest(ctx, benign, "api")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if a.Score != 0 {
		t.Errorf("window-1 score after benign event = %v, want 0 (old hostile event must not count)", a.Score)
	}
}

func TestIngestUsesBaselineDeviation(t *testing.T) {
	ing, s := newTestIngestor(t, Config{}, nil, nil)
	ctx := context.Background()

	// A quiet baseline makes the same level of network use more suspicious.
	err := s.SaveBaseline(ctx, &models.Baseline{
		UserID:     "dave",
		ComputedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("SaveBaseline: %v", err)
	}

	e := benignEvent("dave")
	e.NetworkActivityLevel = 50
	a, err := ing.Ingest(ctx, e, "api")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	// Rule score 50*0.3 = 15 plus max(0, 50-0)/5 = 10 deviation penalty.
	if a.Score != 25 {
		t.Errorf("score with deviating baseline = %v, want 25", a.Score)
	}
}
