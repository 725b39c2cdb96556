// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package risk

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
)

// OutlierModel is the optional unsupervised backend for the statistical
// scoring strategy. Implementations must be safe for concurrent use after
// Fit has returned.
//
// ScoreSamples returns one score per input row. The contract matches the
// engine's clamp(0,100,(0.5-mean)*100) mapping: values around 0.5 and above
// indicate normal samples, values approaching 0 indicate outliers.
type OutlierModel interface {
	// Fit trains the model on a row-per-sample feature matrix.
	Fit(data [][]float64) error

	// ScoreSamples scores each row. Fit must have succeeded first.
	ScoreSamples(data [][]float64) ([]float64, error)
}

// ErrNotFitted is returned by ScoreSamples before a successful Fit.
var ErrNotFitted = errors.New("risk: model not fitted")

// IsolationForestConfig configures an IsolationForest.
type IsolationForestConfig struct {
	// Trees is the number of isolation trees. Default: 100.
	Trees int

	// SampleSize is the subsample size per tree. Default: 256, capped at
	// the training set size.
	SampleSize int

	// Seed makes training reproducible. Default: 42.
	Seed int64
}

// DefaultIsolationForestConfig returns the standard hyperparameters.
func DefaultIsolationForestConfig() IsolationForestConfig {
	return IsolationForestConfig{
		Trees:      100,
		SampleSize: 256,
		Seed:       42,
	}
}

// IsolationForest is an unsupervised outlier model: anomalous points are
// isolated in fewer random splits than normal points, so short average path
// lengths across the ensemble mark outliers.
//
// Training is seeded and therefore reproducible, but callers must not assume
// call-to-call determinism across refits on different data; the rule-based
// strategy remains the safe fallback.
type IsolationForest struct {
	cfg IsolationForestConfig

	mu     sync.RWMutex
	trees  []*isoNode
	norm   float64 // c(sampleSize), normalizes path lengths
	fitted bool
}

// NewIsolationForest creates an untrained forest. Zero-valued config fields
// take their defaults.
func NewIsolationForest(cfg IsolationForestConfig) *IsolationForest {
	def := DefaultIsolationForestConfig()
	if cfg.Trees <= 0 {
		cfg.Trees = def.Trees
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = def.SampleSize
	}
	if cfg.Seed == 0 {
		cfg.Seed = def.Seed
	}
	return &IsolationForest{cfg: cfg}
}

// isoNode is one node of an isolation tree. Leaves have nil children and
// carry the number of samples that reached them.
type isoNode struct {
	splitDim   int
	splitValue float64
	left       *isoNode
	right      *isoNode
	size       int
}

// Fit trains the forest on the given samples.
func (f *IsolationForest) Fit(data [][]float64) error {
	if len(data) < 2 {
		return fmt.Errorf("risk: need at least 2 samples to fit, got %d", len(data))
	}
	dim := len(data[0])
	for i, row := range data {
		if len(row) != dim {
			return fmt.Errorf("risk: inconsistent feature dimension at row %d: %d != %d", i, len(row), dim)
		}
	}

	sample := min(f.cfg.SampleSize, len(data))
	maxDepth := int(math.Ceil(math.Log2(float64(sample))))
	rng := rand.New(rand.NewSource(f.cfg.Seed))

	trees := make([]*isoNode, f.cfg.Trees)
	for t := range trees {
		idx := rng.Perm(len(data))[:sample]
		subset := make([][]float64, sample)
		for i, j := range idx {
			subset[i] = data[j]
		}
		trees[t] = buildIsoTree(subset, 0, maxDepth, rng)
	}

	f.mu.Lock()
	f.trees = trees
	f.norm = avgPathLength(sample)
	f.fitted = true
	f.mu.Unlock()
	return nil
}

// Fitted reports whether a successful Fit has happened.
func (f *IsolationForest) Fitted() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.fitted
}

// ScoreSamples scores each row per the OutlierModel contract: the anomaly
// score a = 2^(-E[h]/c(n)) is folded into 1-a, so clearly normal samples
// score near and above 0.5 while isolated outliers fall toward 0.
func (f *IsolationForest) ScoreSamples(data [][]float64) ([]float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.fitted {
		return nil, ErrNotFitted
	}

	scores := make([]float64, len(data))
	for i, row := range data {
		var sum float64
		for _, tree := range f.trees {
			sum += pathLength(tree, row, 0)
		}
		mean := sum / float64(len(f.trees))
		anomaly := math.Exp2(-mean / f.norm)
		scores[i] = 1 - anomaly
	}
	return scores, nil
}

func buildIsoTree(data [][]float64, depth, maxDepth int, rng *rand.Rand) *isoNode {
	if len(data) <= 1 || depth >= maxDepth {
		return &isoNode{size: len(data)}
	}

	dim := rng.Intn(len(data[0]))
	lo, hi := data[0][dim], data[0][dim]
	for _, row := range data[1:] {
		lo = math.Min(lo, row[dim])
		hi = math.Max(hi, row[dim])
	}
	if hi <= lo {
		// Constant feature in this subset; the split cannot separate anything.
		return &isoNode{size: len(data)}
	}

	split := lo + rng.Float64()*(hi-lo)
	var left, right [][]float64
	for _, row := range data {
		if row[dim] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	return &isoNode{
		splitDim:   dim,
		splitValue: split,
		left:       buildIsoTree(left, depth+1, maxDepth, rng),
		right:      buildIsoTree(right, depth+1, maxDepth, rng),
		size:       len(data),
	}
}

func pathLength(node *isoNode, row []float64, depth int) float64 {
	if node.left == nil {
		return float64(depth) + avgPathLength(node.size)
	}
	if row[node.splitDim] < node.splitValue {
		return pathLength(node.left, row, depth+1)
	}
	return pathLength(node.right, row, depth+1)
}

// eulerMascheroni appears in the harmonic-number approximation used for the
// expected path length of an unsuccessful BST search.
const eulerMascheroni = 0.5772156649

// avgPathLength is c(n), the expected path length for n samples.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + eulerMascheroni
	return 2*h - 2*float64(n-1)/float64(n)
}
