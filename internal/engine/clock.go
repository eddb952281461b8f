package engine

import "sync/atomic"

// Clock is a monotonic logical counter used to stamp trace events.
//
// Ordering authority for persisted events is always the log position;
// the clock only sequences the engine's own observation points so traces
// replay identically. Wall time never orders anything.
//
// Thread-safety: atomic; though under the single-writer-per-scope rule
// one invocation typically owns it at a time.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming from a known sequence number.
// Used when replaying a recorded trace alongside a live one.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number. Strictly increasing.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the latest issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
