// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package risk

import (
	"fmt"
	"strings"

	"github.com/tomtom215/vigil/internal/models"
)

// Explanation thresholds: a clause is emitted when the batch crosses it.
const (
	explainPermRatio = 0.5
	explainNetMean   = 60.0
	explainBgRatio   = 0.4
)

// explainNoData is returned for an empty batch.
const explainNoData = "No recent activity logs available to explain."

// Explain scans the batch once and emits one clause per triggered
// condition, in fixed precedence order, joined by spaces. When nothing
// triggers, a high score gets the aggregate-deviation message and anything
// else is reported as normal.
func Explain(batch []models.Event, score float64) string {
	if len(batch) == 0 {
		return explainNoData
	}

	st := computeStats(batch)
	var clauses []string

	if st.anomalyCount > 0 {
		clauses = append(clauses, fmt.Sprintf("Detected %d known suspicious activities or domains.", st.anomalyCount))
	}
	if float64(st.permCount) > float64(st.n)*explainPermRatio {
		clauses = append(clauses, "Unusually high rate of sensitive permission requests.")
	}
	if st.netMean > explainNetMean {
		clauses = append(clauses, fmt.Sprintf("Heavy network utilization detected (avg %.1f%%).", st.netMean))
	}
	if float64(st.bgCount) > float64(st.n)*explainBgRatio {
		clauses = append(clauses, "Excessive background processes running stealthily.")
	}

	if len(clauses) == 0 {
		if score > levelMediumMax {
			return "Risk increased due to aggregate subtle deviations from baseline behavior."
		}
		return "Activity appears normal."
	}

	return strings.Join(clauses, " ")
}

// Recommend returns the remediation text for a severity tier. The three
// tiers are distinct on purpose; do not collapse them.
func Recommend(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return "Immediate action required: Revoke network access for the compromised app, change passwords, and consider factory resetting the device if anomalous behavior persists."
	case models.SeverityHigh:
		return "Review the app's requested permissions immediately and consider uninstalling it. Run a malware scan."
	default:
		return "Monitor the app's activity. Ensure it only has access to necessary permissions."
	}
}
