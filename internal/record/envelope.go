package record

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType tags the payload kind of an envelope.
type EventType string

const (
	// EventPredictionIssued carries a PredictionRecord.
	EventPredictionIssued EventType = "prediction.issued"

	// EventPredictionResolved carries a ResolutionRecord.
	EventPredictionResolved EventType = "prediction.resolved"

	// EventHalted carries a HaltRecord.
	EventHalted EventType = "engine.halted"

	// EventEvidenceNoted records that evidence was observed for a scope.
	// It does not affect prediction currency; the projection counts it
	// for audit and moves on.
	EventEvidenceNoted EventType = "evidence.noted"
)

// EventEnvelope is the unit appended to the log. Exactly one payload
// field is set, matching Type. Position is assigned by the log on append
// and is the sole ordering authority; OccurredAt is wall time for humans.
type EventEnvelope struct {
	EventID    string    `json:"event_id"`
	Type       EventType `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`

	// Scope is set on every event that concerns a scope. Zero for
	// process-level events.
	Scope Scope `json:"scope,omitzero"`

	// Observer snapshots the frame the producing episode ran under.
	// Nil for events produced outside an episode (e.g. bulk import).
	Observer *ObserverFrame `json:"observer,omitempty"`

	// Payload - exactly one of these is non-nil, per Type.
	Prediction *PredictionRecord `json:"prediction,omitempty"`
	Resolution *ResolutionRecord `json:"resolution,omitempty"`
	Halt       *HaltRecord       `json:"halt,omitempty"`

	// Evidence is the payload of EventEvidenceNoted.
	Evidence []EvidenceRef `json:"evidence,omitempty"`

	// Position is the log position. Zero until the log assigns one;
	// envelopes read back from the log always carry it.
	Position int64 `json:"position,omitempty"`
}

// NewEventID returns a fresh UUIDv7 envelope id. Time-sortable, which
// helps trace reading; never used for ordering decisions.
func NewEventID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Validate checks that the envelope's payload matches its type tag.
// Envelopes are validated before append; a mismatched envelope is a
// programmer error and must never be persisted.
func (e EventEnvelope) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("envelope: missing event id")
	}
	switch e.Type {
	case EventPredictionIssued:
		if e.Prediction == nil {
			return fmt.Errorf("envelope %s: type %s without prediction payload", e.EventID, e.Type)
		}
		if e.Resolution != nil || e.Halt != nil {
			return fmt.Errorf("envelope %s: type %s with extra payloads", e.EventID, e.Type)
		}
	case EventPredictionResolved:
		if e.Resolution == nil {
			return fmt.Errorf("envelope %s: type %s without resolution payload", e.EventID, e.Type)
		}
		if e.Prediction != nil || e.Halt != nil {
			return fmt.Errorf("envelope %s: type %s with extra payloads", e.EventID, e.Type)
		}
	case EventHalted:
		if e.Halt == nil {
			return fmt.Errorf("envelope %s: type %s without halt payload", e.EventID, e.Type)
		}
		if e.Prediction != nil || e.Resolution != nil {
			return fmt.Errorf("envelope %s: type %s with extra payloads", e.EventID, e.Type)
		}
	case EventEvidenceNoted:
		if e.Prediction != nil || e.Resolution != nil || e.Halt != nil {
			return fmt.Errorf("envelope %s: type %s with record payloads", e.EventID, e.Type)
		}
	default:
		return fmt.Errorf("envelope %s: unknown event type %q", e.EventID, e.Type)
	}
	return nil
}
