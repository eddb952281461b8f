// Package gate composes invariant checkers into the three phased gates
// the orchestrator runs:
//
//   - pre-consume: before a prediction is read or used
//     (authorization_scope, prediction_availability)
//   - post-write: after appending a prediction, before treating it as
//     current (evidence_link_completeness, which carries the
//     write-before-use verification)
//   - pre-output: before emitting anything externally consequential
//     (explainable_halt_payload, prediction_outcome_binding)
//
// Within a phase, checkers run in registration order and their outcomes
// merge under the outcome algebra. The order is part of the contract: on
// ties it decides which rationale a halt carries, so it never changes at
// runtime.
//
// Gates are fail-closed and value-free: a gate can stop the engine but
// never performs the action itself, and a pre-output gate only stops on
// shape violations - it never downgrades a CONTINUE for cosmetic reasons.
package gate
