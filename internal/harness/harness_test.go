package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runFile(t *testing.T, name string) *Result {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name))
	require.NoError(t, err)
	result, err := Run(s)
	require.NoError(t, err)
	return result
}

func TestRun_HaltScenario(t *testing.T) {
	result := runFile(t, "ensure-halts-on-empty-scope.yaml")

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 1, result.EventCount)
	assert.False(t, result.CurrentExists)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, "gate:pre_consume", result.Trace[0].Stage)
	assert.Equal(t, "halt", result.Trace[1].Stage)
}

func TestRun_FullLifecycle(t *testing.T) {
	result := runFile(t, "full-lifecycle.yaml")

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 2, result.EventCount)
	assert.True(t, result.CurrentExists)
}

func TestRun_DegradedPredictor(t *testing.T) {
	result := runFile(t, "degraded-predictor.yaml")
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.True(t, result.CurrentExists)
}

func TestRun_UnauthorizedAct(t *testing.T) {
	result := runFile(t, "unauthorized-act.yaml")
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

// The same scenario run twice produces the identical trace. This is the
// property the golden files rest on.
func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "full-lifecycle.yaml"))
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.EventCount, second.EventCount)
}

// A wrong expectation must fail the run, not error out of it.
func TestRun_FailedExpectationReported(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong-expectation
description: expects a stop that does not happen
scope: {mission: utilities, entity: Home, variable: water_level}
steps:
  - op: ensure
    evidence: [{kind: sensor, id: s-1}]
    expect: {flow: STOP, code: no_current_prediction}
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.NotEmpty(t, result.Errors)
}

func TestRun_FailedAssertionReported(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong-count
description: asserts an impossible log count
scope: {mission: utilities, entity: Home, variable: water_level}
steps:
  - op: note
    evidence: [{kind: sensor, id: s-1}]
assertions:
  - type: log_count
    count: 99
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "log_count")
}

// Resolving against a literal unknown id exercises the binding halt
// end to end through the harness.
func TestRun_UnknownResolutionTarget(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: unknown-resolution
description: a resolution naming an unknown prediction halts
scope: {mission: utilities, entity: Home, variable: water_level}
steps:
  - op: resolve
    prediction_id: not-a-real-id
    observed_value: low
    expect: {flow: STOP, code: missing_prediction_id, invariant: prediction_outcome_binding}
assertions:
  - type: halt_count
    count: 1
  - type: resolution_count
    count: 0
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
