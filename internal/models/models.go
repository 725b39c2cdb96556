// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package models

import (
	"time"

	"github.com/google/uuid"
)

// PermissionNone is the sentinel value for events that requested no permission.
const PermissionNone = "none"

// Event is one recorded behavioral observation for a user's device.
// Events are immutable once created and ordered by Timestamp.
type Event struct {
	ID                   uuid.UUID      `json:"id"`
	UserID               string         `json:"user_id"`
	DeviceID             string         `json:"device_id,omitempty"`
	AppName              string         `json:"app_name"`
	PermissionRequested  string         `json:"permission_requested"`
	NetworkActivityLevel float64        `json:"network_activity_level"`
	BackgroundProcess    bool           `json:"background_process_flag"`
	AnomalyFlag          bool           `json:"anomaly_flag"`
	Attributes           map[string]any `json:"attributes,omitempty"`
	Timestamp            time.Time      `json:"timestamp"`
}

// HasPermission reports whether the event requested a sensitive permission.
// A missing field defaults to the benign value.
func (e *Event) HasPermission() bool {
	return e.PermissionRequested != "" && e.PermissionRequested != PermissionNone
}

// Baseline is a user's personalized historical-average behavior profile.
// A zero-valued Baseline (no history) contributes zero deviation penalty.
type Baseline struct {
	UserID                   string    `json:"user_id"`
	AvgPermissionUsage       float64   `json:"avg_permission_usage"`
	AvgNetworkActivity       float64   `json:"avg_network_activity"`
	AvgBackgroundProcessRate float64   `json:"avg_background_process_rate"`
	ComputedAt               time.Time `json:"computed_at"`
}

// RiskLevel classifies a risk score into coarse bands.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Severity is the alarm classification used to select remediation text.
// It is finer-grained than RiskLevel: critical > high > medium >= low.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// RiskAssessment is the engine's scored verdict for one batch.
// Only the latest assessment per user is retained (overwrite semantics).
type RiskAssessment struct {
	UserID         string    `json:"user_id"`
	Score          float64   `json:"score"`
	Level          RiskLevel `json:"level"`
	Severity       Severity  `json:"severity"`
	Explanation    string    `json:"explanation"`
	Recommendation string    `json:"recommendation"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AlertTypeHighRiskBehavior is emitted when a score crosses the alert threshold.
const AlertTypeHighRiskBehavior = "high_risk_behavior"

// Alert is one emitted alert record.
type Alert struct {
	ID             uuid.UUID `json:"id"`
	UserID         string    `json:"user_id"`
	AlertType      string    `json:"alert_type"`
	Severity       Severity  `json:"severity"`
	Message        string    `json:"message"`
	Explanation    string    `json:"explanation,omitempty"`
	Recommendation string    `json:"recommendation"`
	RiskScore      float64   `json:"risk_score"`
	CreatedAt      time.Time `json:"created_at"`
}

// User is a monitored account. Only users with ConsentGiven are
// picked up by the background monitor.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	ConsentGiven bool      `json:"consent_given"`
	CreatedAt    time.Time `json:"created_at"`
}

// Device is one monitored device belonging to a user.
type Device struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"device_name"`
	Type      string    `json:"device_type"`
	CreatedAt time.Time `json:"created_at"`
}
