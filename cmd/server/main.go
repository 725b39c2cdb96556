// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

// Command server runs the Vigil daemon: BadgerDB storage, the risk
// engine, the background device monitor, the websocket alert hub, and
// the HTTP API, all under one supervisor tree.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/vigil/internal/api"
	"github.com/tomtom215/vigil/internal/config"
	"github.com/tomtom215/vigil/internal/dispatch"
	"github.com/tomtom215/vigil/internal/logging"
	"github.com/tomtom215/vigil/internal/monitor"
	"github.com/tomtom215/vigil/internal/pipeline"
	"github.com/tomtom215/vigil/internal/risk"
	"github.com/tomtom215/vigil/internal/store"
	"github.com/tomtom215/vigil/internal/supervisor"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("addr", cfg.ListenAddr()).
		Bool("monitor_enabled", cfg.Monitor.Enabled).
		Bool("outlier_enabled", cfg.Scoring.OutlierEnabled).
		Msg("Starting Vigil")

	// Storage.
	var st *store.Store
	if cfg.Storage.InMemory {
		st, err = store.OpenInMemory()
	} else {
		st, err = store.Open(cfg.Storage.Path)
	}
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	// Risk engine. The outlier model is optional; without it only the
	// rule-based strategy runs.
	var model risk.OutlierModel
	if cfg.Scoring.OutlierEnabled {
		model = risk.NewIsolationForest(risk.IsolationForestConfig{
			Trees:      cfg.Scoring.OutlierTrees,
			SampleSize: cfg.Scoring.OutlierSampleSize,
			Seed:       cfg.Scoring.OutlierSeed,
		})
	}
	engine := risk.NewEngine(model)

	// Alert delivery.
	hub := dispatch.NewHub()
	var notifier pipeline.Notifier
	if cfg.Webhook.Enabled {
		var headers map[string]string
		if cfg.Webhook.AuthHeader != "" && cfg.Webhook.AuthToken != "" {
			headers = map[string]string{cfg.Webhook.AuthHeader: cfg.Webhook.AuthToken}
		}
		notifier = dispatch.NewWebhookNotifier(dispatch.WebhookConfig{
			Enabled:            true,
			URL:                cfg.Webhook.URL,
			Headers:            headers,
			RateLimitPerSecond: cfg.Webhook.RatePerSecond,
			Timeout:            cfg.Webhook.Timeout,
		})
		logging.Info().Str("url", cfg.Webhook.URL).Msg("Webhook notifier enabled")
	}

	// Shared ingest path for API and monitor.
	ingestor := pipeline.NewIngestor(pipeline.Config{
		WindowSize:     cfg.Scoring.WindowSize,
		AlertThreshold: cfg.Scoring.AlertThreshold,
	}, st, st, st, engine, hub, notifier)

	// HTTP surface.
	handler := api.NewHandler(cfg, st, st, ingestor, hub)
	defer handler.Close()
	wsHandler := api.NewWebSocketHandler(hub, cfg.Server.CORSOrigins)
	server := api.NewServer(cfg, api.NewRouter(cfg, handler, wsHandler))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Supervisor tree, bridging zerolog to slog for suture's event hook.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddMessagingService(hub)
	if cfg.Monitor.Enabled {
		sim := monitor.NewSimulator(monitor.Config{
			Interval:             cfg.Monitor.Interval,
			IngestRatePerSecond:  cfg.Monitor.IngestRatePerSecond,
			BaselineRefreshEvery: cfg.Monitor.BaselineRefreshEvery,
			Seed:                 cfg.Monitor.Seed,
		}, st, ingestor)
		tree.AddMessagingService(sim)
		logging.Info().Dur("interval", cfg.Monitor.Interval).Msg("Device monitor added")
	}
	tree.AddAPIService(server)

	// Shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Vigil stopped gracefully")
}
