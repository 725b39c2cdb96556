// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package risk

import "github.com/tomtom215/vigil/internal/models"

// FeatureDim is the fixed dimensionality of an event feature vector.
const FeatureDim = 4

// ExtractFeatures converts one event into its fixed 4-dimensional feature
// vector: [hasPermission, networkActivityLevel, hasBackgroundProcess,
// anomalyFlag]. Missing fields default to the benign value, so extraction
// has no failure mode.
func ExtractFeatures(e *models.Event) []float64 {
	v := make([]float64, FeatureDim)
	if e.HasPermission() {
		v[0] = 1
	}
	v[1] = e.NetworkActivityLevel
	if e.BackgroundProcess {
		v[2] = 1
	}
	if e.AnomalyFlag {
		v[3] = 1
	}
	return v
}

// ExtractBatch converts a batch into a row-per-event feature matrix.
func ExtractBatch(batch []models.Event) [][]float64 {
	rows := make([][]float64, len(batch))
	for i := range batch {
		rows[i] = ExtractFeatures(&batch[i])
	}
	return rows
}

// batchStats holds the aggregate statistics the scorer and the explanation
// synthesizer both derive from a batch. Computed in one pass.
type batchStats struct {
	n            int
	permCount    int
	bgCount      int
	anomalyCount int
	netMean      float64
}

func (s batchStats) permRatio() float64 {
	if s.n == 0 {
		return 0
	}
	return float64(s.permCount) / float64(s.n)
}

func (s batchStats) bgRatio() float64 {
	if s.n == 0 {
		return 0
	}
	return float64(s.bgCount) / float64(s.n)
}

func (s batchStats) anomalyRatio() float64 {
	if s.n == 0 {
		return 0
	}
	return float64(s.anomalyCount) / float64(s.n)
}

func computeStats(batch []models.Event) batchStats {
	st := batchStats{n: len(batch)}
	if st.n == 0 {
		return st
	}

	var netSum float64
	for i := range batch {
		e := &batch[i]
		if e.HasPermission() {
			st.permCount++
		}
		if e.BackgroundProcess {
			st.bgCount++
		}
		if e.AnomalyFlag {
			st.anomalyCount++
		}
		netSum += e.NetworkActivityLevel
	}
	st.netMean = netSum / float64(st.n)
	return st
}
