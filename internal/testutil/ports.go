package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/tmalloy/augur/internal/record"
)

// FixedTime is the wall clock used by deterministic scenarios. Every
// content-addressed id in a golden trace depends on it.
var FixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Now returns FixedTime. Pass to engine.WithNow for reproducible runs.
func Now() time.Time {
	return FixedTime
}

// FixedPredictor answers every Predict with the same distribution, or
// the same error when Err is set. Deterministic by construction.
type FixedPredictor struct {
	Dist record.Distribution
	Err  error
}

// NewFixedPredictor returns a predictor with a stable point distribution.
func NewFixedPredictor() *FixedPredictor {
	return &FixedPredictor{
		Dist: record.Distribution{
			Kind: "point",
			Support: map[string]record.Scalar{
				"low":  record.ScalarFromFloat(0.8),
				"high": record.ScalarFromFloat(0.2),
			},
			Confidence:  record.ScalarFromFloat(0.8),
			Uncertainty: record.ScalarFromFloat(0.2),
		},
	}
}

// Predict implements engine.Predictor.
func (p *FixedPredictor) Predict(context.Context, record.Scope, []record.EvidenceRef) (record.Distribution, error) {
	if p.Err != nil {
		return record.Distribution{}, p.Err
	}
	return p.Dist, nil
}

// PassthroughCalibrator returns distributions unchanged and remembers
// every Update it receives.
type PassthroughCalibrator struct {
	mu      sync.Mutex
	Updates []record.ResolutionRecord
	Err     error
}

// Calibrate implements engine.Calibrator.
func (c *PassthroughCalibrator) Calibrate(_ context.Context, raw record.Distribution, _ record.Scope) (record.Distribution, error) {
	return raw, nil
}

// Update implements engine.Calibrator.
func (c *PassthroughCalibrator) Update(_ context.Context, _ record.PredictionRecord, res record.ResolutionRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.Updates = append(c.Updates, res)
	return nil
}

// UpdateCount returns how many resolutions reached the calibrator.
func (c *PassthroughCalibrator) UpdateCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Updates)
}

// OperatorFrame is a fully privileged observer frame for tests: every
// capability the scenarios use, every invariant allowed.
func OperatorFrame() record.ObserverFrame {
	return record.ObserverFrame{
		Role: "operator",
		Capabilities: []string{
			"predict", "act:adjust_valve", "act:notify", "resolve", "note",
		},
		AuthLevel: 2,
		AllowedInvariants: []string{
			"authorization_scope",
			"prediction_availability",
			"evidence_link_completeness",
			"prediction_outcome_binding",
			"explainable_halt_payload",
		},
	}
}
