package store

import (
	"context"
	"fmt"

	"github.com/tmalloy/augur/internal/eventlog"
	"github.com/tmalloy/augur/internal/record"
)

// Append implements eventlog.Log. The envelope is validated, inserted,
// and its database-assigned position returned. Once Append returns, the
// row is committed: a subsequent ReadFrom covering the position returns
// the identical envelope.
//
// Idempotent on event id: appending an envelope whose id is already
// stored returns the existing row's position without inserting.
func (s *Store) Append(ctx context.Context, env record.EventEnvelope) (int64, error) {
	if err := env.Validate(); err != nil {
		return 0, fmt.Errorf("append: %w", err)
	}

	r, err := marshalEnvelope(env)
	if err != nil {
		return 0, fmt.Errorf("append: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("append: begin tx: %w: %v", eventlog.ErrStoreUnavailable, err)
	}
	defer tx.Rollback() // no-op after commit

	result, err := tx.ExecContext(ctx, `
		INSERT INTO events
		(event_id, event_type, occurred_at, mission, entity, variable, observer, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO NOTHING
	`,
		r.eventID,
		r.eventType,
		r.occurredAt,
		r.mission,
		r.entity,
		r.variable,
		nullableBytes(r.observer),
		string(r.payload),
	)
	if err != nil {
		return 0, fmt.Errorf("append: insert: %w: %v", eventlog.ErrStoreUnavailable, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("append: rows affected: %w", err)
	}

	var position int64
	if rowsAffected > 0 {
		position, err = result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("append: last insert id: %w", err)
		}
	} else {
		// Conflict: the envelope is already stored. Return its position.
		err = tx.QueryRowContext(ctx,
			`SELECT position FROM events WHERE event_id = ?`, r.eventID,
		).Scan(&position)
		if err != nil {
			return 0, fmt.Errorf("append: select existing: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("append: commit: %w: %v", eventlog.ErrStoreUnavailable, err)
	}
	return position, nil
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
