package eventlog

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmalloy/augur/internal/record"
)

// MemoryLog is an in-memory Log used by tests and the conformance
// harness. It honors the full port contract (strict positions,
// restartable reads) and adds failure injection so store-unavailable
// paths can be exercised deterministically.
//
// Thread-safety: all methods are safe for concurrent use. The
// single-writer-per-scope rule is the caller's to uphold, as with any
// Log implementation.
type MemoryLog struct {
	mu        sync.Mutex
	events    []record.EventEnvelope
	available bool
}

// NewMemoryLog creates an empty, available in-memory log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{available: true}
}

// Append implements Log. Positions start at 1.
func (l *MemoryLog) Append(_ context.Context, env record.EventEnvelope) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.available {
		return 0, ErrStoreUnavailable
	}
	if err := env.Validate(); err != nil {
		return 0, fmt.Errorf("memory log append: %w", err)
	}

	env.Position = int64(len(l.events)) + 1
	l.events = append(l.events, env)
	return env.Position, nil
}

// ReadFrom implements Log. Position 0 (Start) reads the whole log.
func (l *MemoryLog) ReadFrom(_ context.Context, pos int64) ([]record.EventEnvelope, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.available {
		return nil, ErrStoreUnavailable
	}

	out := make([]record.EventEnvelope, 0, len(l.events))
	for _, env := range l.events {
		if env.Position >= pos {
			out = append(out, env)
		}
	}
	return out, nil
}

// IsAvailable implements Log.
func (l *MemoryLog) IsAvailable(_ context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.available
}

// SetAvailable toggles failure injection. While unavailable, Append and
// ReadFrom return ErrStoreUnavailable and IsAvailable reports false.
func (l *MemoryLog) SetAvailable(available bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.available = available
}

// Len returns the number of stored events.
func (l *MemoryLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
