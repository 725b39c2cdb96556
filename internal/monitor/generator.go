// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package monitor

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/vigil/internal/models"
)

// Catalog of app names for synthetic device activity. The first block is
// benign everyday usage; the tail is only selected for anomalous events.
var benignApps = []string{
	"WhatsApp", "Instagram", "Chrome", "TikTok", "Snapchat",
	"YouTube", "Telegram", "Facebook", "Calculator", "Camera",
	"Files", "Settings", "Maps", "Gmail", "Slack",
}

var suspiciousApps = []string{
	"SuspiciousVPN", "UnknownAPK", "CryptoMiner", "KeyLogger",
}

// sensitivePermissions excludes the "none" sentinel.
var sensitivePermissions = []string{
	"camera", "microphone", "location", "contacts",
	"storage", "sms", "phone", "accessibility", "overlay",
}

// Probabilities for the benign-event noise floor.
const (
	benignPermissionChance = 0.3
	benignBackgroundChance = 0.1
)

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// generateEvent synthesizes one behavioral observation for a device.
// anomalyChance drives whether the event presents the suspicious profile:
// a flagged app, a sensitive permission, and heavy network activity.
func generateEvent(rng *rand.Rand, userID, deviceID string, anomalyChance float64) *models.Event {
	isAnomaly := rng.Float64() < anomalyChance

	var app string
	if isAnomaly {
		app = suspiciousApps[rng.Intn(len(suspiciousApps))]
	} else {
		app = benignApps[rng.Intn(len(benignApps))]
	}

	permission := models.PermissionNone
	if isAnomaly || rng.Float64() < benignPermissionChance {
		permission = sensitivePermissions[rng.Intn(len(sensitivePermissions))]
	}

	var network float64
	if isAnomaly {
		network = round1(60 + rng.Float64()*40)
	} else {
		network = round1(rng.Float64() * 40)
	}

	return &models.Event{
		ID:                   uuid.New(),
		UserID:               userID,
		DeviceID:             deviceID,
		AppName:              app,
		PermissionRequested:  permission,
		NetworkActivityLevel: network,
		BackgroundProcess:    isAnomaly || rng.Float64() < benignBackgroundChance,
		AnomalyFlag:          isAnomaly,
		Timestamp:            time.Now().UTC(),
	}
}
