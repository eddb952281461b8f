package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmalloy/augur/internal/record"
)

func noteEnvelope() record.EventEnvelope {
	return record.EventEnvelope{
		EventID:    record.NewEventID(),
		Type:       record.EventEvidenceNoted,
		OccurredAt: time.Now(),
		Scope:      record.Scope{Mission: "utilities", Entity: "Home", Variable: "water_level"},
		Evidence:   []record.EvidenceRef{{Kind: "sensor", ID: "s-1"}},
	}
}

func TestMemoryLog_AppendAssignsIncreasingPositions(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	p1, err := log.Append(ctx, noteEnvelope())
	require.NoError(t, err)
	p2, err := log.Append(ctx, noteEnvelope())
	require.NoError(t, err)

	assert.Equal(t, int64(1), p1)
	assert.Equal(t, int64(2), p2)
}

func TestMemoryLog_AppendThenReadReturnsIdenticalEnvelope(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	env := noteEnvelope()
	pos, err := log.Append(ctx, env)
	require.NoError(t, err)

	events, err := log.ReadFrom(ctx, pos)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, env.EventID, events[0].EventID)
	assert.Equal(t, pos, events[0].Position)
}

func TestMemoryLog_ReadFromIsRestartable(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := log.Append(ctx, noteEnvelope())
		require.NoError(t, err)
	}

	first, err := log.ReadFrom(ctx, 3)
	require.NoError(t, err)
	second, err := log.ReadFrom(ctx, 3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
}

func TestMemoryLog_RejectsInvalidEnvelope(t *testing.T) {
	log := NewMemoryLog()
	_, err := log.Append(context.Background(), record.EventEnvelope{Type: record.EventPredictionIssued})
	assert.Error(t, err)
	assert.Equal(t, 0, log.Len())
}

func TestMemoryLog_FailureInjection(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()
	log.SetAvailable(false)

	assert.False(t, log.IsAvailable(ctx))

	_, err := log.Append(ctx, noteEnvelope())
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = log.ReadFrom(ctx, Start)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	log.SetAvailable(true)
	_, err = log.Append(ctx, noteEnvelope())
	assert.NoError(t, err)
}
