package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tmalloy/augur/internal/engine"
	"github.com/tmalloy/augur/internal/eventlog"
	"github.com/tmalloy/augur/internal/outcome"
	"github.com/tmalloy/augur/internal/record"
	"github.com/tmalloy/augur/internal/testutil"
)

// stepOutcome is the outcome shape common to every lifecycle op, with
// the payload erased. Expectation checking only looks at this.
type stepOutcome struct {
	Flow      outcome.Flow
	Validity  outcome.Validity
	Rationale outcome.Rationale
}

func erase[T any](o outcome.Outcome[T]) stepOutcome {
	return stepOutcome{Flow: o.Flow, Validity: o.Validity, Rationale: o.Rationale}
}

// Run executes a scenario against a fresh engine and in-memory log.
//
// Determinism: fixed wall clock, fixed predictor distribution, and a
// passthrough calibrator. The only ids that vary between runs are the
// envelope event ids, and those never reach the trace.
func Run(scenario *Scenario) (*Result, error) {
	log := eventlog.NewMemoryLog()
	collector := engine.NewTraceCollector()

	pred := testutil.NewFixedPredictor()
	if scenario.PredictorFails {
		pred.Err = errors.New("scripted predictor failure")
	}
	cal := &testutil.PassthroughCalibrator{}

	eng, err := engine.New(log, pred, cal,
		engine.WithNow(testutil.Now),
		engine.WithTraceSink(collector),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		return nil, fmt.Errorf("harness: %w", err)
	}

	frame := testutil.OperatorFrame()
	if scenario.Frame != nil {
		frame = scenario.Frame.Frame()
	}

	ctx := context.Background()
	scope := scenario.Scope.Scope()
	result := NewResult()

	// lastIssued tracks the most recent prediction id so resolve steps
	// can bind to it without hardcoding content-addressed ids in YAML.
	var lastIssued string

	for i, step := range scenario.Steps {
		var got stepOutcome
		switch step.Op {
		case OpNote:
			got = erase(eng.NoteEvidence(ctx, scope, refsFromSpecs(step.Evidence), frame))
		case OpEnsure:
			o := eng.EnsureCurrent(ctx, scope, refsFromSpecs(step.Evidence), frame)
			if p, ok := o.Value(); ok {
				lastIssued = p.ID
			}
			got = erase(o)
		case OpSupersede:
			o := eng.Supersede(ctx, scope, refsFromSpecs(step.Evidence), frame)
			if p, ok := o.Value(); ok {
				lastIssued = p.ID
			}
			got = erase(o)
		case OpAct:
			got = erase(eng.Act(ctx, scope, step.Capability, frame))
		case OpResolve:
			id := step.PredictionID
			if id == "last" {
				id = lastIssued
			}
			got = erase(eng.Resolve(ctx, id, step.ObservedValue, step.ErrorMetric, step.ErrorMetricRequired, refsFromSpecs(step.Evidence), frame))
		default:
			return nil, fmt.Errorf("harness: step %d: unknown op %q", i, step.Op)
		}
		checkExpect(result, i, step, got)
	}

	result.Trace = collector.Events()

	events, err := log.ReadFrom(ctx, eventlog.Start)
	if err != nil {
		return nil, fmt.Errorf("harness: reading final log: %w", err)
	}
	state, err := eng.Projection(ctx)
	if err != nil {
		return nil, fmt.Errorf("harness: final projection: %w", err)
	}
	result.EventCount = len(events)
	_, result.CurrentExists = state.CurrentPrediction(scope)

	evaluateAssertions(result, scenario, events)
	return result, nil
}

// checkExpect validates a step outcome against its expect clause. A
// step with no clause must CONTINUE.
func checkExpect(result *Result, i int, step Step, got stepOutcome) {
	if step.Expect == nil {
		if got.Flow != outcome.FlowContinue {
			result.AddError("steps[%d] %s: flow = %s (code=%s), want CONTINUE", i, step.Op, got.Flow, got.Rationale.Code)
		}
		return
	}

	e := step.Expect
	if string(got.Flow) != e.Flow {
		result.AddError("steps[%d] %s: flow = %s, want %s", i, step.Op, got.Flow, e.Flow)
	}
	if e.Validity != "" && string(got.Validity) != e.Validity {
		result.AddError("steps[%d] %s: validity = %s, want %s", i, step.Op, got.Validity, e.Validity)
	}
	if e.Code != "" && got.Rationale.Code != e.Code {
		result.AddError("steps[%d] %s: code = %s, want %s", i, step.Op, got.Rationale.Code, e.Code)
	}
	if e.Invariant != "" && got.Rationale.InvariantID != e.Invariant {
		result.AddError("steps[%d] %s: invariant = %s, want %s", i, step.Op, got.Rationale.InvariantID, e.Invariant)
	}
}

// evaluateAssertions checks the final-state assertions.
func evaluateAssertions(result *Result, scenario *Scenario, events []record.EventEnvelope) {
	halts, resolutions := 0, 0
	for _, env := range events {
		switch env.Type {
		case record.EventHalted:
			halts++
		case record.EventPredictionResolved:
			resolutions++
		}
	}

	for i, a := range scenario.Assertions {
		switch a.Type {
		case AssertLogCount:
			if len(events) != a.Count {
				result.AddError("assertions[%d] log_count: %d events, want %d", i, len(events), a.Count)
			}
		case AssertHaltCount:
			if halts != a.Count {
				result.AddError("assertions[%d] halt_count: %d halts, want %d", i, halts, a.Count)
			}
		case AssertResolutionCount:
			if resolutions != a.Count {
				result.AddError("assertions[%d] resolution_count: %d resolutions, want %d", i, resolutions, a.Count)
			}
		case AssertCurrentExists:
			if result.CurrentExists != a.Exists {
				result.AddError("assertions[%d] current_exists: %v, want %v", i, result.CurrentExists, a.Exists)
			}
		}
	}
}
