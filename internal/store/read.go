package store

import (
	"context"
	"fmt"

	"github.com/tmalloy/augur/internal/eventlog"
	"github.com/tmalloy/augur/internal/record"
)

// ReadFrom implements eventlog.Log: all envelopes at positions >= pos,
// in position order. Restartable - the same call returns the same
// sequence until something appends.
func (s *Store) ReadFrom(ctx context.Context, pos int64) ([]record.EventEnvelope, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, event_id, event_type, occurred_at,
		       mission, entity, variable, observer, payload
		FROM events
		WHERE position >= ?
		ORDER BY position
	`, pos)
	if err != nil {
		return nil, fmt.Errorf("read from %d: %w: %v", pos, eventlog.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []record.EventEnvelope
	for rows.Next() {
		var r row
		var observer []byte
		if err := rows.Scan(
			&r.position,
			&r.eventID,
			&r.eventType,
			&r.occurredAt,
			&r.mission,
			&r.entity,
			&r.variable,
			&observer,
			&r.payload,
		); err != nil {
			return nil, fmt.Errorf("read from %d: scan: %w", pos, err)
		}
		r.observer = observer

		env, err := unmarshalEnvelope(r)
		if err != nil {
			return nil, fmt.Errorf("read from %d: %w", pos, err)
		}
		out = append(out, env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read from %d: %w: %v", pos, eventlog.ErrStoreUnavailable, err)
	}
	return out, nil
}

// IsAvailable implements eventlog.Log with a ping.
func (s *Store) IsAvailable(ctx context.Context) bool {
	return s.db.PingContext(ctx) == nil
}
