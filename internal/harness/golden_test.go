package harness

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmalloy/augur/internal/engine"
	"github.com/tmalloy/augur/internal/record"
)

func TestGolden_EnsureHaltsOnEmptyScope(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "ensure-halts-on-empty-scope.yaml"))
	require.NoError(t, err)
	require.NoError(t, RunWithGolden(t, s))
}

func TestGolden_FullLifecycle(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "full-lifecycle.yaml"))
	require.NoError(t, err)
	require.NoError(t, RunWithGolden(t, s))
}

func TestTraceSnapshot_CanonicalForm(t *testing.T) {
	snapshot := TraceSnapshot{
		ScenarioName: "sample",
		Trace: []engine.TraceEvent{
			{Step: 1, Op: "ensure", Stage: "gate:pre_consume", Scope: "m/e/v", Flow: "CONTINUE", Code: "observer_authorized", InvariantID: "authorization_scope"},
			{Step: 2, Op: "ensure", Stage: "halt"},
		},
	}

	out, err := record.MarshalCanonical(snapshot.toCanonicalMap())
	require.NoError(t, err)

	// Canonical output is valid JSON with zero fields omitted.
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "sample", decoded["scenario_name"])

	trace, ok := decoded["trace"].([]any)
	require.True(t, ok)
	require.Len(t, trace, 2)
	second := trace[1].(map[string]any)
	assert.NotContains(t, second, "flow")
	assert.NotContains(t, second, "position")

	// Stable bytes: marshaling twice is identical.
	again, err := record.MarshalCanonical(snapshot.toCanonicalMap())
	require.NoError(t, err)
	assert.Equal(t, out, again)
}
