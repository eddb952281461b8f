package invariant

import (
	"fmt"

	"github.com/tmalloy/augur/internal/outcome"
	"github.com/tmalloy/augur/internal/projection"
	"github.com/tmalloy/augur/internal/record"
)

// Invariant ids. These are part of the wire contract: halt records name
// them, and observer frames whitelist them.
const (
	PredictionAvailability   = "prediction_availability"
	EvidenceLinkCompleteness = "evidence_link_completeness"
	PredictionOutcomeBinding = "prediction_outcome_binding"
	ExplainableHaltPayload   = "explainable_halt_payload"
	AuthorizationScope       = "authorization_scope"
)

// Rationale codes produced by the checkers in this package.
const (
	CodeNoCurrentPrediction    = "no_current_prediction"
	CodeMissingEvidenceLinks   = "missing_evidence_links"
	CodeLogUnavailable         = "prediction_log_unavailable"
	CodeWriteBeforeUse         = "write_before_use_violation"
	CodeMissingPredictionID    = "missing_prediction_id"
	CodeNonNumericErrorMetric  = "non_numeric_error_metric"
	CodeHaltPayloadIncomplete  = "halt_payload_incomplete"
	CodeObserverNotAuthorized  = "observer_not_authorized"
)

// Checker is a pure, total precondition check. It must never panic and
// never perform I/O; inapplicable candidates get a "not applicable"
// CONTINUE.
type Checker func(state projection.State, cand Candidate, frame record.ObserverFrame) outcome.Outcome[outcome.Unit]

// Registry is the closed table of invariant id -> checker. Built once at
// startup, read-only afterwards. Iteration order is registration order.
type Registry struct {
	order    []string
	checkers map[string]Checker
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{checkers: make(map[string]Checker)}
}

// Register adds a checker under an id. A colliding id is a startup
// failure, not a call-time surprise.
func (r *Registry) Register(id string, c Checker) error {
	if id == "" {
		return fmt.Errorf("invariant registry: empty id")
	}
	if c == nil {
		return fmt.Errorf("invariant registry: nil checker for %q", id)
	}
	if _, exists := r.checkers[id]; exists {
		return fmt.Errorf("invariant registry: duplicate id %q", id)
	}
	r.order = append(r.order, id)
	r.checkers[id] = c
	return nil
}

// Lookup returns the checker for an id.
func (r *Registry) Lookup(id string) (Checker, bool) {
	c, ok := r.checkers[id]
	return c, ok
}

// IDs returns the registered ids in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Default builds the registry with the standard checkers in their
// canonical order. Panics on duplicate registration, which can only
// happen through a programming error in this function.
func Default() *Registry {
	r := New()
	for _, reg := range []struct {
		id string
		c  Checker
	}{
		{AuthorizationScope, CheckAuthorizationScope},
		{PredictionAvailability, CheckPredictionAvailability},
		{EvidenceLinkCompleteness, CheckEvidenceLinkCompleteness},
		{PredictionOutcomeBinding, CheckPredictionOutcomeBinding},
		{ExplainableHaltPayload, CheckExplainableHaltPayload},
	} {
		if err := r.Register(reg.id, reg.c); err != nil {
			panic(fmt.Sprintf("invariant registry: %v", err))
		}
	}
	return r
}
