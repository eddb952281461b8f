package eventlog

import (
	"context"
	"errors"

	"github.com/tmalloy/augur/internal/record"
)

// ErrStoreUnavailable reports that the backing store cannot accept
// writes or serve reads right now. Retryable by the caller; the engine
// surfaces it as a halt with a retry hint.
var ErrStoreUnavailable = errors.New("event store unavailable")

// Start is the position passed to ReadFrom to read the whole log.
const Start int64 = 0

// Log is the append-only event log port.
//
// Implementations must guarantee: once Append returns (p, nil), every
// subsequent ReadFrom covering p returns the identical envelope with
// Position == p. Positions are strictly increasing; the log, not the
// caller, assigns them.
type Log interface {
	// Append durably stores the envelope and returns its position.
	// The envelope must pass record.Validate before it is persisted.
	Append(ctx context.Context, env record.EventEnvelope) (int64, error)

	// ReadFrom returns all envelopes at positions >= pos, in log order.
	// Restartable: repeated calls from the same position return
	// identical sequences (absent intervening appends).
	ReadFrom(ctx context.Context, pos int64) ([]record.EventEnvelope, error)

	// IsAvailable is a cheap liveness probe used by write-before-use
	// checks. It never blocks on I/O longer than a probe should.
	IsAvailable(ctx context.Context) bool
}
