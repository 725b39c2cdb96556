// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

// Package pipeline runs one event through Vigil end to end: persist the
// event, re-score the user against their recent window and baseline, save
// the assessment, and when the score crosses the alert threshold emit and
// deliver an alert. Both the HTTP ingest handler and the background
// monitor feed this single path.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/vigil/internal/dispatch"
	"github.com/tomtom215/vigil/internal/logging"
	"github.com/tomtom215/vigil/internal/metrics"
	"github.com/tomtom215/vigil/internal/models"
	"github.com/tomtom215/vigil/internal/risk"
)

// Defaults for the scoring window and alert threshold.
const (
	DefaultWindowSize     = 50
	DefaultAlertThreshold = 70.0
)

// EventStore persists events and serves the recent scoring window.
type EventStore interface {
	AppendEvent(ctx context.Context, e *models.Event) error
	RecentEvents(ctx context.Context, userID string, limit int) ([]models.Event, error)
}

// ProfileStore serves baselines and stores assessments.
type ProfileStore interface {
	GetBaseline(ctx context.Context, userID string) (*models.Baseline, error)
	SaveAssessment(ctx context.Context, a *models.RiskAssessment) error
}

// AlertStore persists emitted alerts.
type AlertStore interface {
	SaveAlert(ctx context.Context, a *models.Alert) error
}

// AlertSender pushes an alert payload to a user's live connections.
type AlertSender interface {
	SendToUser(userID string, payload dispatch.AlertPayload) int
}

// Notifier forwards alert payloads to an external endpoint. Implementations
// must tolerate being disabled.
type Notifier interface {
	Enabled() bool
	Notify(ctx context.Context, payload dispatch.AlertPayload) error
}

// Config tunes the ingest path.
type Config struct {
	// WindowSize is how many most-recent events feed each scoring pass.
	WindowSize int
	// AlertThreshold is the score above which an alert is emitted.
	AlertThreshold float64
}

func (c Config) withDefaults() Config {
	if c.WindowSize <= 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.AlertThreshold <= 0 {
		c.AlertThreshold = DefaultAlertThreshold
	}
	return c
}

// Ingestor is the shared ingest-and-score path.
type Ingestor struct {
	cfg      Config
	events   EventStore
	profiles ProfileStore
	alerts   AlertStore
	engine   *risk.Engine
	sender   AlertSender
	notifier Notifier
}

// NewIngestor wires the ingest path. sender and notifier may be nil,
// which disables live delivery and webhook forwarding respectively.
func NewIngestor(cfg Config, events EventStore, profiles ProfileStore, alerts AlertStore, engine *risk.Engine, sender AlertSender, notifier Notifier) *Ingestor {
	return &Ingestor{
		cfg:      cfg.withDefaults(),
		events:   events,
		profiles: profiles,
		alerts:   alerts,
		engine:   engine,
		sender:   sender,
		notifier: notifier,
	}
}

// Ingest records the event, re-scores its user, persists the assessment,
// and emits an alert when the score crosses the threshold. Alert delivery
// is best effort: a failed push or webhook never fails the ingest. source
// labels the ingest metric ("api" or "monitor").
func (p *Ingestor) Ingest(ctx context.Context, e *models.Event, source string) (*models.RiskAssessment, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.PermissionRequested == "" {
		e.PermissionRequested = models.PermissionNone
	}

	if err := p.events.AppendEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}
	metrics.EventsIngested.WithLabelValues(source).Inc()

	batch, err := p.events.RecentEvents(ctx, e.UserID, p.cfg.WindowSize)
	if err != nil {
		return nil, fmt.Errorf("load scoring window: %w", err)
	}

	baseline, err := p.profiles.GetBaseline(ctx, e.UserID)
	if err != nil {
		// Score without a baseline rather than dropping the event.
		logging.Warn().Err(err).Str("user_id", e.UserID).Msg("baseline unavailable, scoring without it")
		baseline = nil
	}

	start := time.Now()
	assessment := p.engine.Score(batch, baseline)
	metrics.ScoringDuration.Observe(time.Since(start).Seconds())

	assessment.UserID = e.UserID
	if err := p.profiles.SaveAssessment(ctx, &assessment); err != nil {
		return nil, fmt.Errorf("save assessment: %w", err)
	}
	metrics.AssessmentsByLevel.WithLabelValues(string(assessment.Level)).Inc()

	logging.Debug().
		Str("user_id", e.UserID).
		Float64("score", assessment.Score).
		Str("level", string(assessment.Level)).
		Msg("event scored")

	if assessment.Score > p.cfg.AlertThreshold {
		p.emitAlert(ctx, e, &assessment)
	}

	return &assessment, nil
}

// emitAlert builds, persists, and delivers one alert. Persistence failure
// is the only error that surfaces in the log at error level; delivery
// problems are warnings.
func (p *Ingestor) emitAlert(ctx context.Context, e *models.Event, a *models.RiskAssessment) {
	alert := &models.Alert{
		ID:             uuid.New(),
		UserID:         a.UserID,
		AlertType:      models.AlertTypeHighRiskBehavior,
		Severity:       a.Severity,
		Message:        fmt.Sprintf("Risk score %.1f: suspicious activity from %s", a.Score, e.AppName),
		Explanation:    a.Explanation,
		Recommendation: a.Recommendation,
		RiskScore:      a.Score,
		CreatedAt:      time.Now().UTC(),
	}

	if err := p.alerts.SaveAlert(ctx, alert); err != nil {
		logging.Error().Err(err).Str("user_id", alert.UserID).Msg("failed to persist alert")
		return
	}
	metrics.AlertsEmitted.WithLabelValues(string(alert.Severity)).Inc()

	payload := dispatch.NewAlertPayload(alert)

	if p.sender != nil {
		delivered := p.sender.SendToUser(alert.UserID, payload)
		logging.Info().
			Str("user_id", alert.UserID).
			Str("severity", string(alert.Severity)).
			Float64("score", alert.RiskScore).
			Int("delivered", delivered).
			Msg("alert emitted")
	}

	if p.notifier != nil && p.notifier.Enabled() {
		if err := p.notifier.Notify(ctx, payload); err != nil {
			logging.Warn().Err(err).Str("user_id", alert.UserID).Msg("webhook notification failed")
		}
	}
}
