// Package outcome implements the result envelope returned by every
// capability in augur.
//
// An Outcome carries two independent axes:
//
//   - Flow: whether the caller may proceed (CONTINUE) or must halt (STOP)
//   - Validity: epistemic quality of the result (VALID, DEGRADED, INVALID)
//
// The axes are deliberately separate. A CONTINUE outcome may still be
// DEGRADED (low confidence, stale observation); a STOP is always INVALID.
// Collapsing the two into a single tri-state loses the distinction between
// "do not proceed" and "proceed with caution", so the package never does.
//
// Outcomes are values, not errors. No part of the engine signals STOP by
// raising an error; control flow decisions travel inside the envelope.
// Errors are reserved for infrastructure faults (store I/O) and for
// malformed construction, which is a programmer error.
//
// CONSTRUCTION CONTRACT:
// A STOP outcome must name the invariant that forced it. Stop() panics if
// the rationale carries no invariant id - a halt that cannot explain itself
// must never be built, let alone logged.
//
// MERGE RULE (used by the gate pipeline):
//   - STOP dominates CONTINUE
//   - INVALID dominates DEGRADED dominates VALID
//   - hints and issues concatenate in evaluation order
//   - the primary rationale is the first STOP's; if nothing stopped,
//     the first non-VALID's; otherwise the first outcome's
package outcome
