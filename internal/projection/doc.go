// Package projection derives "what is currently predicted" from the
// event log.
//
// Project is a pure function: fold the log's envelopes in order, nothing
// else. Two equal event sequences always produce field-for-field equal
// states, in the same process or across restarts. There is no ambient
// "current view" anywhere in augur - callers pass the events in and get
// a fresh value back.
//
// Fold rules:
//
//   - prediction.issued: current[scope.Key()] = prediction id. Log order
//     is total, so the last writer for a scope wins; supersession lineage
//     is recorded but never consulted for ordering.
//   - prediction.resolved: currency unchanged (resolution does not
//     retract a prediction); the resolution index advances.
//   - everything else: currency unchanged; event count and position
//     still advance, so the audit trail sees every event.
//
// INVARIANT: at most one current prediction id per scope key at any
// projected position. The fold maintains this structurally - the map
// holds one value per key and is only ever overwritten, never appended.
//
// The optional Cache is the only memoization allowed: explicit, keyed by
// exact log position, owned by the caller, invalidated on any append.
package projection
