// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

// Package risk implements the behavioral risk-scoring engine.
//
// The engine scores a bounded window of recent events for one user
// ("batch") against an optional personalized baseline and produces a
// RiskAssessment: a 0-100 score, a coarse level, a finer severity tier, and
// human-readable explanation and recommendation text.
//
// Two scoring strategies exist. The rule-based strategy is deterministic and
// always available: four sub-scores (permission rate, mean network activity,
// background-process rate, upstream anomaly rate) combined by a fixed
// weighted sum. The statistical strategy runs an unsupervised outlier model
// over the batch's feature vectors and is used opportunistically when a
// model is configured and the batch is large enough; any failure on that
// path falls back to the rules for that call and is never surfaced to the
// caller.
//
// All computation here is pure and never suspends; persistence and delivery
// belong to internal/pipeline.
package risk
