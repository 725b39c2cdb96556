// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package risk

import (
	"math"
	"sync"
	"time"

	"github.com/tomtom215/vigil/internal/logging"
	"github.com/tomtom215/vigil/internal/models"
)

// Sub-score weights for the rule-based strategy.
const (
	weightPermission = 0.3
	weightNetwork    = 0.3
	weightBackground = 0.2
	weightDomain     = 0.2
)

// minOutlierBatch is the smallest batch the statistical strategy accepts;
// smaller batches always use the rules.
const minOutlierBatch = 5

// Baseline-deviation penalty constants. The two strategies divide the
// network deviation differently (10 vs 5); both values are load-bearing for
// compatibility with historically persisted baselines and must not be
// unified.
const (
	permDiffFactor        = 10.0
	netDiffDivisorOutlier = 10.0
	netDiffDivisorRules   = 5.0
)

// Level thresholds (score <= 40 low, <= 70 medium, > 70 high) and severity
// thresholds (>= 85 critical, > 70 high, else the level).
const (
	levelLowMax     = 40.0
	levelMediumMax  = 70.0
	severityHighMin = 70.0
	severityCritMin = 85.0
)

// Engine is the hybrid scorer. The outlier model is optional and injected;
// when present it is fitted opportunistically on the first eligible batch
// and reused for the life of the process.
type Engine struct {
	model OutlierModel

	fitMu  sync.Mutex
	fitted bool
}

// NewEngine creates an engine. A nil model disables the statistical
// strategy entirely.
func NewEngine(model OutlierModel) *Engine {
	return &Engine{model: model}
}

// Score produces a RiskAssessment for a batch of recent events and an
// optional baseline. It never returns an error: data insufficiency yields
// defined defaults and any outlier-model failure falls back to the
// rule-based strategy for this call.
func (e *Engine) Score(batch []models.Event, baseline *models.Baseline) models.RiskAssessment {
	score := e.scoreStatistical(batch, baseline)
	if score < 0 {
		score = scoreRules(batch, baseline)
	}

	level := LevelForScore(score)
	severity := SeverityForScore(score)

	return models.RiskAssessment{
		Score:          score,
		Level:          level,
		Severity:       severity,
		Explanation:    Explain(batch, score),
		Recommendation: Recommend(severity),
		UpdatedAt:      time.Now().UTC(),
	}
}

// scoreStatistical runs the outlier strategy and returns -1 when the
// strategy is unavailable or failed, signalling the rule fallback.
func (e *Engine) scoreStatistical(batch []models.Event, baseline *models.Baseline) float64 {
	if e.model == nil || len(batch) < minOutlierBatch {
		return -1
	}

	features := ExtractBatch(batch)

	e.fitMu.Lock()
	if !e.fitted {
		if err := e.model.Fit(features); err != nil {
			e.fitMu.Unlock()
			logging.Warn().Err(err).Msg("outlier model fit failed, using rule-based scoring")
			return -1
		}
		e.fitted = true
	}
	e.fitMu.Unlock()

	scores, err := e.model.ScoreSamples(features)
	if err != nil || len(scores) == 0 {
		logging.Warn().Err(err).Msg("outlier model scoring failed, using rule-based scoring")
		return -1
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))

	risk := clamp((0.5 - mean) * 100)

	if baseline != nil {
		st := computeStats(batch)
		permDiff := math.Max(0, st.permRatio()-baseline.AvgPermissionUsage)
		netDiff := math.Max(0, st.netMean-baseline.AvgNetworkActivity)
		risk = clamp(risk + permDiff*permDiffFactor + netDiff/netDiffDivisorOutlier)
	}

	return round1(risk)
}

// scoreRules is the deterministic rule-based strategy.
func scoreRules(batch []models.Event, baseline *models.Baseline) float64 {
	if len(batch) == 0 {
		return 0
	}

	st := computeStats(batch)

	permScore := clamp(st.permRatio() * 100)
	netScore := clamp(st.netMean)
	bgScore := clamp(st.bgRatio() * 100)
	domainScore := clamp(st.anomalyRatio() * 100)

	risk := permScore*weightPermission +
		netScore*weightNetwork +
		bgScore*weightBackground +
		domainScore*weightDomain

	if baseline != nil {
		permDiff := math.Max(0, st.permRatio()-baseline.AvgPermissionUsage)
		netDiff := math.Max(0, st.netMean-baseline.AvgNetworkActivity)
		risk += permDiff*permDiffFactor + netDiff/netDiffDivisorRules
	}

	return round1(clamp(risk))
}

// LevelForScore maps a score to its coarse level. Pure step function.
func LevelForScore(score float64) models.RiskLevel {
	switch {
	case score <= levelLowMax:
		return models.RiskLevelLow
	case score <= levelMediumMax:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelHigh
	}
}

// SeverityForScore maps a score to its alarm tier. Severity is never less
// alarming than the level for the same score.
func SeverityForScore(score float64) models.Severity {
	switch {
	case score >= severityCritMin:
		return models.SeverityCritical
	case score > severityHighMin:
		return models.SeverityHigh
	default:
		return models.Severity(LevelForScore(score))
	}
}

func clamp(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
