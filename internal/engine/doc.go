// Package engine implements the augur orchestrator: the state machine
// that refuses to act without a durable, evidence-linked, gate-approved
// prediction.
//
// Every operation runs the same synchronous shape:
//
//	project -> pre-consume gate -> (use | write) -> post-write gate -> pre-output gate
//
// The log is projected fresh at the start of each invocation, gates
// evaluate invariants against (state, candidate, observer frame), and
// any STOP is appended as a halt record and returned as a value - never
// thrown, never retried automatically. Retry is always a hint to the
// caller.
//
// WRITE-BEFORE-USE:
// A newly issued prediction is never treated as current on faith. After
// Append returns, the engine re-projects the log and the post-write gate
// verifies the just-written id is what projection now reports as current
// for the scope. A mismatch means a log/projection inconsistency or a
// racing writer, and halts.
//
// CONCURRENCY:
// One invocation is one synchronous unit of work. Invocations for
// different scopes may run concurrently; invocations for the SAME scope
// must be serialized by the caller or the log (single writer per scope).
// The engine takes no locks and has no partial-commit state: either the
// append succeeded and the post-write gate runs, or nothing was
// appended.
//
// The blocking points are exactly the log port calls and the external
// predictor/calibrator ports; projection and gating are pure.
package engine
