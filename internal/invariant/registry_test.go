package invariant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmalloy/augur/internal/outcome"
	"github.com/tmalloy/augur/internal/projection"
	"github.com/tmalloy/augur/internal/record"
)

func passChecker(projection.State, Candidate, record.ObserverFrame) outcome.Outcome[outcome.Unit] {
	return outcome.NotApplicable[outcome.Unit]("test")
}

func TestRegistry_Register(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("a", passChecker))
	require.NoError(t, r.Register("b", passChecker))

	err := r.Register("a", passChecker)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")

	require.Error(t, r.Register("", passChecker))
	require.Error(t, r.Register("c", nil))

	// The failed registrations did not disturb the table.
	assert.Equal(t, []string{"a", "b"}, r.IDs())
}

func TestRegistry_Lookup(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("a", passChecker))

	c, ok := r.Lookup("a")
	assert.True(t, ok)
	assert.NotNil(t, c)

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestDefault_OrderAndContents(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{
		AuthorizationScope,
		PredictionAvailability,
		EvidenceLinkCompleteness,
		PredictionOutcomeBinding,
		ExplainableHaltPayload,
	}, r.IDs())

	for _, id := range r.IDs() {
		_, ok := r.Lookup(id)
		assert.True(t, ok, "missing checker for %s", id)
	}
}
