package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPrediction(t *testing.T) PredictionRecord {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	dist := Distribution{Kind: "point", Confidence: ScalarFromFloat(0.8), Uncertainty: ScalarFromFloat(0.2)}
	p, err := NewPrediction(testScope, now, now, now.Add(time.Hour), dist, dist, nil, nil)
	require.NoError(t, err)
	return p
}

func TestEnvelope_ValidatePayloadMatchesType(t *testing.T) {
	p := validPrediction(t)
	h, err := NewHaltRecord("prediction_availability", "no_current_prediction", "m", map[string]string{}, []EvidenceRef{}, testScope, time.Now())
	require.NoError(t, err)

	tests := []struct {
		name    string
		env     EventEnvelope
		wantErr bool
	}{
		{
			name: "prediction ok",
			env:  EventEnvelope{EventID: NewEventID(), Type: EventPredictionIssued, Prediction: &p},
		},
		{
			name:    "prediction missing payload",
			env:     EventEnvelope{EventID: NewEventID(), Type: EventPredictionIssued},
			wantErr: true,
		},
		{
			name:    "prediction with halt payload too",
			env:     EventEnvelope{EventID: NewEventID(), Type: EventPredictionIssued, Prediction: &p, Halt: &h},
			wantErr: true,
		},
		{
			name: "halt ok",
			env:  EventEnvelope{EventID: NewEventID(), Type: EventHalted, Halt: &h},
		},
		{
			name: "evidence note ok",
			env:  EventEnvelope{EventID: NewEventID(), Type: EventEvidenceNoted, Evidence: []EvidenceRef{{Kind: "sensor", ID: "s-1"}}},
		},
		{
			name:    "evidence note with record payload",
			env:     EventEnvelope{EventID: NewEventID(), Type: EventEvidenceNoted, Prediction: &p},
			wantErr: true,
		},
		{
			name:    "missing event id",
			env:     EventEnvelope{Type: EventPredictionIssued, Prediction: &p},
			wantErr: true,
		},
		{
			name:    "unknown type",
			env:     EventEnvelope{EventID: NewEventID(), Type: "mystery"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.env.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewEventID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewEventID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
