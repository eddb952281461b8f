// Package store is the SQLite-backed implementation of the event log
// port.
//
// One append-only table. Positions come from the rowid sequence, so they
// are strictly increasing and assigned inside the database - a racing
// second writer cannot mint the same position. Rows are never updated or
// deleted; the only statements this package issues against the events
// table are INSERT and SELECT.
//
// Appends are idempotent on envelope id: re-appending an envelope that
// is already stored returns the existing position instead of a duplicate
// row. Crash-and-retry loops therefore cannot double-log an event.
//
// DURABILITY: WAL mode with NORMAL synchronous. Append returns only
// after the insert committed, which is what the engine's
// write-before-use verification leans on.
package store
