package outcome

import (
	"fmt"

	"github.com/tmalloy/augur/internal/record"
)

// Flow controls whether the caller proceeds.
type Flow string

const (
	// FlowContinue means the caller may proceed with the value.
	FlowContinue Flow = "CONTINUE"

	// FlowStop means the caller must halt. A STOP outcome is always
	// INVALID and always names the invariant that forced it.
	FlowStop Flow = "STOP"
)

// Validity grades the epistemic quality of a result, independent of Flow.
type Validity string

const (
	ValidityValid    Validity = "VALID"
	ValidityDegraded Validity = "DEGRADED"
	ValidityInvalid  Validity = "INVALID"
)

// rank orders validities for merging. Higher rank dominates.
func (v Validity) rank() int {
	switch v {
	case ValidityInvalid:
		return 2
	case ValidityDegraded:
		return 1
	default:
		return 0
	}
}

// HintKind categorizes non-binding suggestions to the caller.
type HintKind string

const (
	HintRetry    HintKind = "retry"
	HintProbe    HintKind = "probe"
	HintEscalate HintKind = "escalate"
)

// Hint is a non-binding suggestion for the caller. The engine never acts
// on hints itself; retries in particular are always the caller's decision.
type Hint struct {
	Kind    HintKind `json:"kind"`
	Message string   `json:"message,omitempty"`
}

// IssueRef records a durable obligation orthogonal to flow, e.g. a
// prediction flagged for calibration review. Issues never block progress.
type IssueRef struct {
	Kind    string `json:"kind"`
	Subject string `json:"subject,omitempty"` // record id the issue attaches to
	Message string `json:"message,omitempty"`
}

// Rationale explains an outcome: a machine-readable code, the invariant
// that produced it (mandatory on STOP), a human message, structured
// details, and the evidence consulted.
type Rationale struct {
	Code        string               `json:"code"`
	InvariantID string               `json:"invariant_id,omitempty"`
	Message     string               `json:"message"`
	Details     map[string]string    `json:"details,omitempty"`
	Evidence    []record.EvidenceRef `json:"evidence,omitempty"`
}

// Outcome is the universal result envelope. The zero value is not valid;
// use Continue, ContinueDegraded, NotApplicable, or Stop.
type Outcome[T any] struct {
	Flow      Flow
	Validity  Validity
	Rationale Rationale
	Hints     []Hint
	Issues    []IssueRef

	value    T
	hasValue bool
}

// Unit is the value type for outcomes that carry no payload, such as
// invariant checks.
type Unit struct{}

// Continue builds a CONTINUE/VALID outcome carrying a value.
func Continue[T any](value T, r Rationale) Outcome[T] {
	return Outcome[T]{
		Flow:      FlowContinue,
		Validity:  ValidityValid,
		Rationale: r,
		value:     value,
		hasValue:  true,
	}
}

// ContinueDegraded builds a CONTINUE/DEGRADED outcome carrying a value.
// Used when the result is usable but its quality is impaired, e.g. a
// predictor timeout answered from coarse priors.
func ContinueDegraded[T any](value T, r Rationale) Outcome[T] {
	o := Continue(value, r)
	o.Validity = ValidityDegraded
	return o
}

// NotApplicable builds a valueless CONTINUE/VALID outcome. Checkers return
// it when their precondition does not apply to the candidate; it is an
// informational pass, never an error.
func NotApplicable[T any](invariantID string) Outcome[T] {
	return Outcome[T]{
		Flow:     FlowContinue,
		Validity: ValidityValid,
		Rationale: Rationale{
			Code:        "not_applicable",
			InvariantID: invariantID,
			Message:     "check does not apply to this candidate",
		},
	}
}

// Stop builds a STOP/INVALID outcome.
//
// Panics if the rationale has no invariant id. This is the construction
// contract from the outcome algebra: an unexplainable halt is a programmer
// error and must be rejected before it can ever reach the log.
func Stop[T any](r Rationale) Outcome[T] {
	if r.InvariantID == "" {
		panic(fmt.Sprintf("outcome: STOP constructed without invariant id (code=%q)", r.Code))
	}
	return Outcome[T]{
		Flow:      FlowStop,
		Validity:  ValidityInvalid,
		Rationale: r,
	}
}

// Value returns the carried value and whether one is present. A value is
// present only on CONTINUE outcomes built with Continue or ContinueDegraded.
func (o Outcome[T]) Value() (T, bool) {
	return o.value, o.hasValue
}

// Stopped reports whether the outcome's flow is STOP.
func (o Outcome[T]) Stopped() bool {
	return o.Flow == FlowStop
}

// WithHints returns a copy of the outcome with hints appended.
func (o Outcome[T]) WithHints(hints ...Hint) Outcome[T] {
	o.Hints = append(append([]Hint(nil), o.Hints...), hints...)
	return o
}

// WithIssues returns a copy of the outcome with issues appended.
func (o Outcome[T]) WithIssues(issues ...IssueRef) Outcome[T] {
	o.Issues = append(append([]IssueRef(nil), o.Issues...), issues...)
	return o
}

// Carry transfers a unit outcome's flow, validity, rationale, hints and
// issues onto an outcome carrying a value. Used by the orchestrator to
// attach a gate verdict to the record it gates. If the gate stopped, the
// result is the STOP itself (no value leaks past a stop).
func Carry[T any](gate Outcome[Unit], value T) Outcome[T] {
	if gate.Stopped() {
		return Outcome[T]{
			Flow:      FlowStop,
			Validity:  ValidityInvalid,
			Rationale: gate.Rationale,
			Hints:     gate.Hints,
			Issues:    gate.Issues,
		}
	}
	o := Continue(value, gate.Rationale)
	o.Validity = gate.Validity
	o.Hints = gate.Hints
	o.Issues = gate.Issues
	return o
}
