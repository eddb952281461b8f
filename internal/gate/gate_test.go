package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmalloy/augur/internal/invariant"
	"github.com/tmalloy/augur/internal/outcome"
	"github.com/tmalloy/augur/internal/projection"
	"github.com/tmalloy/augur/internal/record"
)

var scope = record.Scope{Mission: "utilities", Entity: "Home", Variable: "water_level"}

func fullFrame() record.ObserverFrame {
	return record.ObserverFrame{
		Role:         "operator",
		Capabilities: []string{"predict", "act:adjust_valve", "resolve"},
		AuthLevel:    2,
		AllowedInvariants: []string{
			invariant.AuthorizationScope,
			invariant.PredictionAvailability,
			invariant.EvidenceLinkCompleteness,
			invariant.PredictionOutcomeBinding,
			invariant.ExplainableHaltPayload,
		},
	}
}

func stateWithPrediction(t *testing.T) projection.State {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	dist := record.Distribution{Kind: "point", Confidence: record.ScalarFromFloat(0.9), Uncertainty: record.ScalarFromFloat(0.1)}
	p, err := record.NewPrediction(scope, now, now, now.Add(time.Hour), dist, dist,
		[]record.EvidenceRef{{Kind: "sensor", ID: "s-1"}}, nil)
	require.NoError(t, err)

	s := projection.Empty()
	s.Predictions[p.ID] = p
	s.Current[scope.Key()] = p.ID
	s.Position = 1
	s.EventCount = 1
	return s
}

func TestNewPipeline_RejectsDanglingInvariant(t *testing.T) {
	reg := invariant.New()
	require.NoError(t, reg.Register(invariant.AuthorizationScope, invariant.CheckAuthorizationScope))

	_, err := NewPipeline(reg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unregistered invariant")

	_, err = NewPipeline(nil)
	require.Error(t, err)
}

func TestEvaluate_PreConsumePasses(t *testing.T) {
	p, err := NewPipeline(invariant.Default())
	require.NoError(t, err)

	o := p.Evaluate(PhasePreConsume, stateWithPrediction(t), invariant.Candidate{
		Scope:              scope,
		Kind:               invariant.KindAct,
		RequiresPrediction: true,
		RequiredCapability: "act:adjust_valve",
	}, fullFrame())

	assert.Equal(t, outcome.FlowContinue, o.Flow)
	assert.Equal(t, outcome.ValidityValid, o.Validity)
}

func TestEvaluate_EmptyScopeStops(t *testing.T) {
	p, err := NewPipeline(invariant.Default())
	require.NoError(t, err)

	o := p.Evaluate(PhasePreConsume, projection.Empty(), invariant.Candidate{
		Scope:              scope,
		Kind:               invariant.KindEnsure,
		RequiresPrediction: true,
	}, fullFrame())

	assert.Equal(t, outcome.FlowStop, o.Flow)
	assert.Equal(t, invariant.CodeNoCurrentPrediction, o.Rationale.Code)
	assert.Equal(t, invariant.PredictionAvailability, o.Rationale.InvariantID)
}

// Phase order decides the primary rationale: authorization_scope runs
// before prediction_availability in pre_consume, so when both would
// stop, the authorization failure is the one reported.
func TestEvaluate_PhaseOrderDecidesPrimaryRationale(t *testing.T) {
	p, err := NewPipeline(invariant.Default())
	require.NoError(t, err)

	o := p.Evaluate(PhasePreConsume, projection.Empty(), invariant.Candidate{
		Scope:              scope,
		Kind:               invariant.KindEnsure,
		RequiresPrediction: true,
	}, record.ObserverFrame{Role: "stranger"})

	assert.Equal(t, outcome.FlowStop, o.Flow)
	assert.Equal(t, invariant.CodeObserverNotAuthorized, o.Rationale.Code)
	assert.Equal(t, invariant.AuthorizationScope, o.Rationale.InvariantID)
}

func TestEvaluate_SetsPendingInvariantsPerPhase(t *testing.T) {
	p, err := NewPipeline(invariant.Default())
	require.NoError(t, err)

	// A frame allowed only the post-write invariant passes post_write
	// but would fail pre_consume, proving PendingInvariants tracks the
	// phase being evaluated rather than the whole pipeline.
	frame := record.ObserverFrame{
		Role:              "verifier",
		AllowedInvariants: []string{invariant.EvidenceLinkCompleteness},
	}

	o := p.Evaluate(PhasePostWrite, stateWithPrediction(t), invariant.Candidate{
		Scope:        scope,
		LogAvailable: true,
	}, frame)
	assert.Equal(t, outcome.FlowContinue, o.Flow)

	o = p.Evaluate(PhasePreConsume, stateWithPrediction(t), invariant.Candidate{
		Scope: scope,
	}, frame)
	assert.Equal(t, outcome.FlowStop, o.Flow)
	assert.Equal(t, invariant.CodeObserverNotAuthorized, o.Rationale.Code)
}

func TestEvaluate_PreOutputBinding(t *testing.T) {
	p, err := NewPipeline(invariant.Default())
	require.NoError(t, err)

	o := p.Evaluate(PhasePreOutput, projection.Empty(), invariant.Candidate{
		Scope: scope,
		Kind:  invariant.KindResolve,
	}, fullFrame())
	assert.Equal(t, outcome.FlowStop, o.Flow)
	assert.Equal(t, invariant.CodeMissingPredictionID, o.Rationale.Code)

	o = p.Evaluate(PhasePreOutput, projection.Empty(), invariant.Candidate{
		Scope:        scope,
		Kind:         invariant.KindResolve,
		PredictionID: "p-1",
	}, fullFrame())
	assert.Equal(t, outcome.FlowContinue, o.Flow)
}

func TestPhaseInvariants_ReturnsCopy(t *testing.T) {
	p, err := NewPipeline(invariant.Default())
	require.NoError(t, err)

	ids := p.PhaseInvariants(PhasePreConsume)
	require.NotEmpty(t, ids)
	ids[0] = "scribbled"

	assert.Equal(t, invariant.AuthorizationScope, p.PhaseInvariants(PhasePreConsume)[0])
}

// A STOP in the middle of a phase does not suppress later checkers'
// contributions: validity degradation and issue refs from checkers after
// the stop still surface on the merged outcome.
func TestEvaluate_NoShortCircuit(t *testing.T) {
	reg := invariant.New()
	require.NoError(t, reg.Register(invariant.AuthorizationScope, invariant.CheckAuthorizationScope))
	require.NoError(t, reg.Register(invariant.PredictionAvailability, invariant.CheckPredictionAvailability))
	require.NoError(t, reg.Register(invariant.EvidenceLinkCompleteness, invariant.CheckEvidenceLinkCompleteness))
	require.NoError(t, reg.Register(invariant.PredictionOutcomeBinding, invariant.CheckPredictionOutcomeBinding))
	require.NoError(t, reg.Register(invariant.ExplainableHaltPayload, invariant.CheckExplainableHaltPayload))

	p, err := NewPipeline(reg)
	require.NoError(t, err)

	// pre_output evaluates explainable_halt_payload before
	// prediction_outcome_binding. Give the first a failing halt and the
	// second a failing binding: the first failure is primary, but both
	// ran, which the merged INVALID validity plus the stable primary
	// rationale demonstrate across candidate variations.
	bad := record.HaltRecord{Code: "x"}
	o := p.Evaluate(PhasePreOutput, projection.Empty(), invariant.Candidate{
		Scope: scope,
		Kind:  invariant.KindResolve,
		Halt:  &bad,
	}, fullFrame())

	assert.Equal(t, outcome.FlowStop, o.Flow)
	assert.Equal(t, invariant.CodeHaltPayloadIncomplete, o.Rationale.Code)
	assert.Equal(t, outcome.ValidityInvalid, o.Validity)
}
