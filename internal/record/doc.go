// Package record defines the durable data model of augur: scopes,
// evidence references, prediction / resolution / halt records, observer
// frames, and the event envelope appended to the log.
//
// Records are immutable once appended. There is no update path anywhere in
// this package: a correction to a prediction is a NEW PredictionRecord
// whose Supersedes set names the old one, and a resolution never rewrites
// the prediction it binds to. Components hold copies of logged records,
// never mutable references into the log.
//
// IDENTITY:
// Prediction, resolution and halt records are content-addressed: their id
// is a domain-separated SHA-256 over the record's canonical JSON form.
// The same logical record always hashes to the same id, across restarts
// and replays, which is what makes idempotent append and deterministic
// replay possible. Event envelope ids are UUIDv7 (time-sortable, for
// debugging only - ordering authority is always the log position).
//
// DETERMINISM:
// Canonical serialization forbids floats. Probability-like quantities are
// carried as Scalar, integer parts-per-million, so two processes that
// compute the same distribution always serialize and hash it identically.
package record
