package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tmalloy/augur/internal/record"
)

// Scenario defines one conformance run: a scope, lifecycle steps with
// per-step outcome expectations, and assertions over the final state.
type Scenario struct {
	// Name uniquely identifies the scenario; golden files are keyed on it.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Scope is the default scope steps run against.
	Scope ScopeSpec `yaml:"scope"`

	// Frame overrides the observer frame. Empty means the fully
	// privileged operator frame.
	Frame *FrameSpec `yaml:"frame,omitempty"`

	// PredictorFails makes the predictor port return an error, so the
	// degraded-issue path can be scripted.
	PredictorFails bool `yaml:"predictor_fails,omitempty"`

	// Steps is the lifecycle sequence.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final log and projection.
	Assertions []Assertion `yaml:"assertions"`
}

// ScopeSpec is the YAML form of a record.Scope.
type ScopeSpec struct {
	Mission  string `yaml:"mission"`
	Entity   string `yaml:"entity"`
	Variable string `yaml:"variable"`
}

// Scope converts to the record type.
func (s ScopeSpec) Scope() record.Scope {
	return record.Scope{Mission: s.Mission, Entity: s.Entity, Variable: s.Variable}
}

// FrameSpec is the YAML form of an observer frame.
type FrameSpec struct {
	Role         string   `yaml:"role"`
	AuthLevel    int      `yaml:"auth_level"`
	Capabilities []string `yaml:"capabilities"`
	Invariants   []string `yaml:"invariants"`
}

// Frame converts to the record type.
func (f FrameSpec) Frame() record.ObserverFrame {
	return record.ObserverFrame{
		Role:              f.Role,
		AuthLevel:         f.AuthLevel,
		Capabilities:      f.Capabilities,
		AllowedInvariants: f.Invariants,
	}
}

// Step is one lifecycle operation.
type Step struct {
	// Op is one of "note", "ensure", "supersede", "act", "resolve".
	Op string `yaml:"op"`

	// Evidence carried by the step, for ops that take evidence refs.
	Evidence []EvidenceSpec `yaml:"evidence,omitempty"`

	// Capability is the capability an act step exercises.
	Capability string `yaml:"capability,omitempty"`

	// Resolve fields. PredictionID of "last" binds to the most recently
	// issued prediction; any other value is used literally (unknown ids
	// script the missing-binding halt).
	PredictionID        string `yaml:"prediction_id,omitempty"`
	ObservedValue       string `yaml:"observed_value,omitempty"`
	ErrorMetric         string `yaml:"error_metric,omitempty"`
	ErrorMetricRequired bool   `yaml:"error_metric_required,omitempty"`

	// Expect validates the step's outcome. Nil means the step must
	// CONTINUE.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// EvidenceSpec is the YAML form of an evidence ref.
type EvidenceSpec struct {
	Kind string `yaml:"kind"`
	ID   string `yaml:"id"`
}

// Refs converts a spec list to record refs. Nil in, nil out.
func refsFromSpecs(specs []EvidenceSpec) []record.EvidenceRef {
	if specs == nil {
		return nil
	}
	out := make([]record.EvidenceRef, len(specs))
	for i, s := range specs {
		out[i] = record.EvidenceRef{Kind: s.Kind, ID: s.ID}
	}
	return out
}

// ExpectClause specifies the expected outcome of a step. Empty fields
// are not checked.
type ExpectClause struct {
	// Flow is "CONTINUE" or "STOP".
	Flow string `yaml:"flow"`

	// Validity is "VALID", "DEGRADED" or "INVALID".
	Validity string `yaml:"validity,omitempty"`

	// Code is the expected primary rationale code.
	Code string `yaml:"code,omitempty"`

	// Invariant is the expected rationale invariant id.
	Invariant string `yaml:"invariant,omitempty"`
}

// Assertion validates the final log or projection.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected number, for the counting assertions.
	Count int `yaml:"count,omitempty"`

	// Exists is the expectation for current_exists.
	Exists bool `yaml:"exists,omitempty"`
}

// Assertion type constants.
const (
	// AssertLogCount checks the total number of events in the log,
	// halts included.
	AssertLogCount = "log_count"

	// AssertCurrentExists checks whether the scope has a current
	// prediction in the final projection.
	AssertCurrentExists = "current_exists"

	// AssertHaltCount counts engine.halted events in the log.
	AssertHaltCount = "halt_count"

	// AssertResolutionCount counts prediction.resolved events.
	AssertResolutionCount = "resolution_count"
)

// Step op constants.
const (
	OpNote      = "note"
	OpEnsure    = "ensure"
	OpSupersede = "supersede"
	OpAct       = "act"
	OpResolve   = "resolve"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so a typo fails loudly instead of silently skipping a
// check.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML bytes.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Scope == (ScopeSpec{}) {
		return fmt.Errorf("scope is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		switch step.Op {
		case OpNote, OpEnsure, OpSupersede:
		case OpAct:
			if step.Capability == "" {
				return fmt.Errorf("steps[%d]: act requires a capability", i)
			}
		case OpResolve:
			if step.PredictionID == "" {
				return fmt.Errorf("steps[%d]: resolve requires prediction_id (\"last\" or a literal id)", i)
			}
		default:
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if step.Expect != nil {
			switch step.Expect.Flow {
			case "CONTINUE", "STOP":
			default:
				return fmt.Errorf("steps[%d].expect: flow must be CONTINUE or STOP, got %q", i, step.Expect.Flow)
			}
		}
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertLogCount, AssertHaltCount, AssertResolutionCount:
			if a.Count < 0 {
				return fmt.Errorf("assertions[%d]: count must be non-negative", i)
			}
		case AssertCurrentExists:
		case "":
			return fmt.Errorf("assertions[%d]: type is required", i)
		default:
			return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
		}
	}
	return nil
}
