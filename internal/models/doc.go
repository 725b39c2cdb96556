// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

// Package models defines the shared data types for Vigil: behavioral
// events, per-user baselines, risk assessments, alerts, and the user and
// device records the background monitor iterates over.
//
// Types here are plain data with JSON tags; all behavior lives in the
// packages that consume them (internal/risk, internal/pipeline,
// internal/store).
package models
