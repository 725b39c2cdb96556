// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package risk

import (
	"time"

	"github.com/tomtom215/vigil/internal/models"
)

// ComputeBaseline reduces a user's historical events into their
// average-behavior profile. An empty history yields the all-zero Baseline,
// which contributes no deviation penalty during scoring. Deterministic and
// pure; the recomputation schedule belongs to the caller.
func ComputeBaseline(userID string, history []models.Event) models.Baseline {
	b := models.Baseline{UserID: userID, ComputedAt: time.Now().UTC()}
	if len(history) == 0 {
		return b
	}

	st := computeStats(history)
	n := float64(max(st.n, 1))
	b.AvgPermissionUsage = float64(st.permCount) / n
	b.AvgNetworkActivity = st.netMean
	b.AvgBackgroundProcessRate = float64(st.bgCount) / n
	return b
}
