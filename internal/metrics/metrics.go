// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

// Package metrics registers Vigil's Prometheus instruments: ingest
// throughput, scoring latency, alert emissions, live websocket clients and
// background monitor pass timing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsIngested counts events accepted by the pipeline, by source
	// ("api" or "monitor").
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_events_ingested_total",
			Help: "Total behavioral events ingested",
		},
		[]string{"source"},
	)

	// ScoringDuration observes one Engine.Score call end to end.
	ScoringDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vigil_scoring_duration_seconds",
			Help:    "Duration of risk scoring per batch",
			Buckets: prometheus.DefBuckets,
		},
	)

	// AssessmentsByLevel counts persisted assessments by risk level.
	AssessmentsByLevel = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_assessments_total",
			Help: "Total risk assessments produced",
		},
		[]string{"level"},
	)

	// AlertsEmitted counts alerts that crossed the alert threshold, by
	// severity tier.
	AlertsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_alerts_emitted_total",
			Help: "Total alerts emitted",
		},
		[]string{"severity"},
	)

	// WebsocketClients gauges currently open alert channels.
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigil_websocket_clients",
			Help: "Currently connected alert channels",
		},
	)

	// DeliveryFailures counts pruned channels after failed deliveries.
	DeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_alert_delivery_failures_total",
			Help: "Alert deliveries that failed and pruned their channel",
		},
	)

	// MonitorPassDuration observes one full background monitoring pass
	// over all consenting users.
	MonitorPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vigil_monitor_pass_duration_seconds",
			Help:    "Duration of one background monitoring pass",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
	)

	// MonitorPassErrors counts per-user failures the monitor skipped over.
	MonitorPassErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_monitor_pass_errors_total",
			Help: "Per-user errors tolerated during monitoring passes",
		},
	)
)
