// Package invariant holds the registry of pure, total precondition
// checks the gate pipeline runs before the engine may act.
//
// A Checker is a pure function of (projected state, candidate, observer
// frame) returning an outcome. Checkers never perform I/O, never consult
// a clock, and never panic on inapplicable input - when a checker's
// precondition doesn't apply to the candidate it returns an
// informational "not applicable" CONTINUE, not an error.
//
// The registry is closed: the set of invariant ids is fixed at startup,
// duplicate registration fails construction, and nothing can add a
// checker at call time. Registration order matters - gates evaluate
// checkers in that order, and the order decides which rationale becomes
// primary when several checks fail.
package invariant
