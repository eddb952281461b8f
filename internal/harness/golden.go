package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/tmalloy/augur/internal/engine"
	"github.com/tmalloy/augur/internal/record"
)

// TraceSnapshot is the golden-file form of a scenario run: the scenario
// name and the engine trace. Serialized with canonical JSON so byte
// comparison is meaningful.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []engine.TraceEvent
}

// toCanonicalMap flattens the snapshot for MarshalCanonical, which only
// takes maps, slices and integer-or-string leaves. Zero fields are
// omitted, matching canonical JSON's no-null rule.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"step":  ev.Step,
			"op":    ev.Op,
			"stage": ev.Stage,
		}
		if ev.Scope != "" {
			m["scope"] = ev.Scope
		}
		if ev.Flow != "" {
			m["flow"] = ev.Flow
		}
		if ev.Code != "" {
			m["code"] = ev.Code
		}
		if ev.InvariantID != "" {
			m["invariant_id"] = ev.InvariantID
		}
		if ev.Position != 0 {
			m["position"] = ev.Position
		}
		trace[i] = m
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
	}
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
//
// The scenario's own expectations and assertions must also pass; a
// matching trace with failed assertions is still a failed run.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	snapshot := TraceSnapshot{ScenarioName: scenario.Name, Trace: result.Trace}
	traceJSON, err := record.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)
	return nil
}
