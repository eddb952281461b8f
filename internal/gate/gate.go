package gate

import (
	"fmt"

	"github.com/tmalloy/augur/internal/invariant"
	"github.com/tmalloy/augur/internal/outcome"
	"github.com/tmalloy/augur/internal/projection"
	"github.com/tmalloy/augur/internal/record"
)

// Phase names a gate in the orchestration lifecycle.
type Phase string

const (
	PhasePreConsume Phase = "pre_consume"
	PhasePostWrite  Phase = "post_write"
	PhasePreOutput  Phase = "pre_output"
)

// Pipeline binds phases to ordered invariant ids resolved against a
// registry. Built once at startup; immutable afterwards.
type Pipeline struct {
	registry *invariant.Registry
	phases   map[Phase][]string
}

// defaultPhases is the canonical phase composition. Order within a phase
// is contractual.
func defaultPhases() map[Phase][]string {
	return map[Phase][]string{
		PhasePreConsume: {
			invariant.AuthorizationScope,
			invariant.PredictionAvailability,
		},
		PhasePostWrite: {
			invariant.EvidenceLinkCompleteness,
		},
		PhasePreOutput: {
			invariant.ExplainableHaltPayload,
			invariant.PredictionOutcomeBinding,
		},
	}
}

// NewPipeline builds the default pipeline over a registry. Every phase
// id must resolve to a registered checker; a dangling id fails startup.
func NewPipeline(reg *invariant.Registry) (*Pipeline, error) {
	return newPipeline(reg, defaultPhases())
}

func newPipeline(reg *invariant.Registry, phases map[Phase][]string) (*Pipeline, error) {
	if reg == nil {
		return nil, fmt.Errorf("gate pipeline: nil registry")
	}
	for phase, ids := range phases {
		for _, id := range ids {
			if _, ok := reg.Lookup(id); !ok {
				return nil, fmt.Errorf("gate pipeline: phase %s references unregistered invariant %q", phase, id)
			}
		}
	}
	return &Pipeline{registry: reg, phases: phases}, nil
}

// PhaseInvariants returns the invariant ids a phase evaluates, in order.
func (p *Pipeline) PhaseInvariants(phase Phase) []string {
	ids := p.phases[phase]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Evaluate runs a phase's checkers in order against (state, candidate,
// frame) and merges their outcomes.
//
// The candidate's PendingInvariants is set to the phase's id list before
// evaluation so authorization_scope can vet the whole phase, not just
// itself. Evaluation never short-circuits: later checkers still run
// after a STOP, so merged hints and issues are complete, and monotonic
// merging guarantees the STOP survives.
func (p *Pipeline) Evaluate(phase Phase, state projection.State, cand invariant.Candidate, frame record.ObserverFrame) outcome.Outcome[outcome.Unit] {
	ids := p.phases[phase]
	cand.PendingInvariants = ids

	outs := make([]outcome.Outcome[outcome.Unit], 0, len(ids))
	for _, id := range ids {
		checker, ok := p.registry.Lookup(id)
		if !ok {
			// Unreachable after NewPipeline validation; stop loudly
			// rather than silently skipping a check.
			outs = append(outs, outcome.Stop[outcome.Unit](outcome.Rationale{
				Code:        "checker_missing",
				InvariantID: id,
				Message:     fmt.Sprintf("invariant %q vanished from the registry", id),
				Details:     map[string]string{"phase": string(phase)},
			}))
			continue
		}
		outs = append(outs, checker(state, cand, frame))
	}
	return outcome.Merge(outs...)
}
