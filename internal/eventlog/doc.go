// Package eventlog defines the append-only log port that the engine
// consumes, and an in-memory implementation used by tests and the
// conformance harness.
//
// The log is the sole source of truth in augur. Everything else -
// projection state, "current prediction" lookups, caches - is derived
// from it and disposable. The port contract the engine relies on:
//
//   - Append is durable before it returns a position. A successful
//     append at position p means ReadFrom(q) for any q <= p returns the
//     identical envelope at p, now and after restart. This is the
//     linchpin of replay determinism.
//   - ReadFrom returns events in log order and is restartable: calling
//     it twice from the same position yields identical sequences.
//   - Positions are strictly increasing and assigned by the log. Two
//     envelopes never share a position.
//
// A store that cannot accept writes or serve reads reports
// ErrStoreUnavailable; the engine turns that into a STOP with a retry
// hint, never into data loss or a silent default.
//
// The production SQLite-backed implementation lives in internal/store.
package eventlog
