// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package dispatch

import (
	"time"

	"github.com/tomtom215/vigil/internal/models"
)

// Message types on the websocket.
const (
	MessageTypeAlert = "alert"
	MessageTypePing  = "ping"
	MessageTypePong  = "pong"
)

// AlertPayload is the stable wire contract for alert delivery over any
// transport. Field names and types must not change without versioning the
// protocol.
type AlertPayload struct {
	Type           string  `json:"type"`
	AlertID        string  `json:"alert_id"`
	AlertType      string  `json:"alert_type"`
	Severity       string  `json:"severity"`
	Message        string  `json:"message"`
	Recommendation string  `json:"recommendation"`
	Timestamp      string  `json:"timestamp"`
	RiskScore      float64 `json:"risk_score"`
}

// NewAlertPayload packages an alert record for delivery. The timestamp is
// the delivery time in UTC, RFC 3339.
func NewAlertPayload(alert *models.Alert) AlertPayload {
	return AlertPayload{
		Type:           MessageTypeAlert,
		AlertID:        alert.ID.String(),
		AlertType:      alert.AlertType,
		Severity:       string(alert.Severity),
		Message:        alert.Message,
		Recommendation: alert.Recommendation,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		RiskScore:      alert.RiskScore,
	}
}

// controlMessage is the envelope for client-originated frames (keepalive).
type controlMessage struct {
	Type string `json:"type"`
}
