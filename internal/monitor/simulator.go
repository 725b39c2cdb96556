// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

// Package monitor runs the background activity loop: on a fixed interval it
// generates one synthetic behavioral event per monitored device and feeds
// it through the shared ingest pipeline, so consenting users accumulate
// history, scores, and alerts without any client traffic. It also owns the
// baseline recomputation policy.
package monitor

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tomtom215/vigil/internal/logging"
	"github.com/tomtom215/vigil/internal/metrics"
	"github.com/tomtom215/vigil/internal/models"
	"github.com/tomtom215/vigil/internal/risk"
)

// Defaults for the monitor loop.
const (
	DefaultInterval             = 30 * time.Second
	DefaultIngestRatePerSecond  = 50
	DefaultBaselineRefreshEvery = 10

	anomalyChanceMin = 0.1
	anomalyChanceMax = 0.35

	defaultDeviceName = "Main Phone"
	defaultDeviceType = "smartphone"
)

// Directory is the store surface the monitor iterates and refreshes.
type Directory interface {
	ListConsentingUsers(ctx context.Context) ([]models.User, error)
	ListDevices(ctx context.Context, userID string) ([]models.Device, error)
	SaveDevice(ctx context.Context, d *models.Device) error
	AllEvents(ctx context.Context, userID string) ([]models.Event, error)
	SaveBaseline(ctx context.Context, b *models.Baseline) error
}

// Ingestor is the slice of the pipeline the monitor drives.
type Ingestor interface {
	Ingest(ctx context.Context, e *models.Event, source string) (*models.RiskAssessment, error)
}

// Config tunes the monitor loop.
type Config struct {
	// Interval between passes over the monitored population.
	Interval time.Duration
	// IngestRatePerSecond caps how fast a single pass feeds the pipeline.
	IngestRatePerSecond int
	// BaselineRefreshEvery recomputes per-user baselines every N passes.
	BaselineRefreshEvery int
	// Seed makes the synthetic activity reproducible; 0 seeds from the clock.
	Seed int64
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.IngestRatePerSecond <= 0 {
		c.IngestRatePerSecond = DefaultIngestRatePerSecond
	}
	if c.BaselineRefreshEvery <= 0 {
		c.BaselineRefreshEvery = DefaultBaselineRefreshEvery
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}

// Simulator is the background monitor service. It runs single-threaded; all
// concurrency lives downstream in the pipeline and dispatcher.
type Simulator struct {
	cfg     Config
	dir     Directory
	ingest  Ingestor
	rng     *rand.Rand
	limiter *rate.Limiter

	passes int
}

// NewSimulator builds the monitor loop over the given directory and
// ingest path.
func NewSimulator(cfg Config, dir Directory, ingest Ingestor) *Simulator {
	cfg = cfg.withDefaults()
	return &Simulator{
		cfg:     cfg,
		dir:     dir,
		ingest:  ingest,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		limiter: rate.NewLimiter(rate.Limit(cfg.IngestRatePerSecond), cfg.IngestRatePerSecond),
	}
}

// String names the service in supervisor logs.
func (s *Simulator) String() string { return "monitor" }

// Serve runs passes until the context is cancelled. Suture-compatible.
func (s *Simulator) Serve(ctx context.Context) error {
	logging.Info().
		Dur("interval", s.cfg.Interval).
		Int("baseline_refresh_every", s.cfg.BaselineRefreshEvery).
		Msg("device monitor started")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := s.RunPass(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.MonitorPassErrors.Inc()
			logging.Error().Err(err).Msg("monitor pass failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunPass performs one pass: one synthetic event per device of every
// consenting user, then a baseline refresh when the pass counter is due.
// Per-user failures are logged and skipped so one broken user cannot
// starve the rest.
func (s *Simulator) RunPass(ctx context.Context) error {
	start := time.Now()

	users, err := s.dir.ListConsentingUsers(ctx)
	if err != nil {
		return fmt.Errorf("list consenting users: %w", err)
	}

	simulated := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := s.simulateUser(ctx, u.ID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.MonitorPassErrors.Inc()
			logging.Warn().Err(err).Str("user_id", u.ID).Msg("skipping user this pass")
			continue
		}
		simulated += n
	}

	s.passes++
	if s.passes%s.cfg.BaselineRefreshEvery == 0 {
		s.refreshBaselines(ctx, users)
	}

	metrics.MonitorPassDuration.Observe(time.Since(start).Seconds())
	if simulated > 0 {
		logging.Debug().
			Int("devices", simulated).
			Int("users", len(users)).
			Msg("monitor pass complete")
	}
	return nil
}

// simulateUser generates one event per device, provisioning the default
// device for users who have none yet.
func (s *Simulator) simulateUser(ctx context.Context, userID string) (int, error) {
	devices, err := s.dir.ListDevices(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list devices: %w", err)
	}
	if len(devices) == 0 {
		d := models.Device{
			ID:        uuid.NewString(),
			UserID:    userID,
			Name:      defaultDeviceName,
			Type:      defaultDeviceType,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.dir.SaveDevice(ctx, &d); err != nil {
			return 0, fmt.Errorf("provision default device: %w", err)
		}
		devices = []models.Device{d}
	}

	anomalyChance := anomalyChanceMin + s.rng.Float64()*(anomalyChanceMax-anomalyChanceMin)

	simulated := 0
	for _, d := range devices {
		if err := s.limiter.Wait(ctx); err != nil {
			return simulated, err
		}
		e := generateEvent(s.rng, userID, d.ID, anomalyChance)
		if _, err := s.ingest.Ingest(ctx, e, "monitor"); err != nil {
			return simulated, fmt.Errorf("ingest for device %s: %w", d.ID, err)
		}
		simulated++
	}
	return simulated, nil
}

// refreshBaselines recomputes each user's baseline from their full stored
// history. Users with no history keep no baseline rather than a zeroed one.
func (s *Simulator) refreshBaselines(ctx context.Context, users []models.User) {
	for _, u := range users {
		if ctx.Err() != nil {
			return
		}
		history, err := s.dir.AllEvents(ctx, u.ID)
		if err != nil {
			logging.Warn().Err(err).Str("user_id", u.ID).Msg("baseline refresh: history unavailable")
			continue
		}
		if len(history) == 0 {
			continue
		}
		b := risk.ComputeBaseline(u.ID, history)
		if err := s.dir.SaveBaseline(ctx, &b); err != nil {
			logging.Warn().Err(err).Str("user_id", u.ID).Msg("baseline refresh: save failed")
			continue
		}
	}
	logging.Info().Int("users", len(users)).Msg("baselines refreshed")
}
