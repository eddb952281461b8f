package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tmalloy/augur/internal/record"
)

// row is the flat storage form of an envelope.
type row struct {
	position   int64
	eventID    string
	eventType  string
	occurredAt int64 // UTC nanoseconds
	mission    string
	entity     string
	variable   string
	observer   []byte // nullable JSON
	payload    []byte
}

// marshalEnvelope flattens an envelope for insertion. The payload column
// holds the record matching the type tag; evidence notes store the ref
// list. Storage JSON is plain encoding/json - content-addressed ids were
// computed from canonical form before the envelope got here, and the
// read path restores the envelope field-for-field either way.
func marshalEnvelope(env record.EventEnvelope) (row, error) {
	var payload any
	switch env.Type {
	case record.EventPredictionIssued:
		payload = env.Prediction
	case record.EventPredictionResolved:
		payload = env.Resolution
	case record.EventHalted:
		payload = env.Halt
	case record.EventEvidenceNoted:
		refs := env.Evidence
		if refs == nil {
			refs = []record.EvidenceRef{}
		}
		payload = refs
	default:
		return row{}, fmt.Errorf("marshal envelope: unknown event type %q", env.Type)
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return row{}, fmt.Errorf("marshal envelope payload: %w", err)
	}

	r := row{
		eventID:    env.EventID,
		eventType:  string(env.Type),
		occurredAt: env.OccurredAt.UTC().UnixNano(),
		mission:    env.Scope.Mission,
		entity:     env.Scope.Entity,
		variable:   env.Scope.Variable,
		payload:    payloadJSON,
	}
	if env.Observer != nil {
		observerJSON, err := json.Marshal(env.Observer)
		if err != nil {
			return row{}, fmt.Errorf("marshal envelope observer: %w", err)
		}
		r.observer = observerJSON
	}
	return r, nil
}

// unmarshalEnvelope restores an envelope from its storage row.
func unmarshalEnvelope(r row) (record.EventEnvelope, error) {
	env := record.EventEnvelope{
		EventID:    r.eventID,
		Type:       record.EventType(r.eventType),
		OccurredAt: time.Unix(0, r.occurredAt).UTC(),
		Scope: record.Scope{
			Mission:  r.mission,
			Entity:   r.entity,
			Variable: r.variable,
		},
		Position: r.position,
	}

	if len(r.observer) > 0 {
		var frame record.ObserverFrame
		if err := json.Unmarshal(r.observer, &frame); err != nil {
			return record.EventEnvelope{}, fmt.Errorf("unmarshal observer at position %d: %w", r.position, err)
		}
		env.Observer = &frame
	}

	switch env.Type {
	case record.EventPredictionIssued:
		var p record.PredictionRecord
		if err := json.Unmarshal(r.payload, &p); err != nil {
			return record.EventEnvelope{}, fmt.Errorf("unmarshal prediction at position %d: %w", r.position, err)
		}
		env.Prediction = &p
	case record.EventPredictionResolved:
		var res record.ResolutionRecord
		if err := json.Unmarshal(r.payload, &res); err != nil {
			return record.EventEnvelope{}, fmt.Errorf("unmarshal resolution at position %d: %w", r.position, err)
		}
		env.Resolution = &res
	case record.EventHalted:
		var h record.HaltRecord
		if err := json.Unmarshal(r.payload, &h); err != nil {
			return record.EventEnvelope{}, fmt.Errorf("unmarshal halt at position %d: %w", r.position, err)
		}
		env.Halt = &h
	case record.EventEvidenceNoted:
		var refs []record.EvidenceRef
		if err := json.Unmarshal(r.payload, &refs); err != nil {
			return record.EventEnvelope{}, fmt.Errorf("unmarshal evidence at position %d: %w", r.position, err)
		}
		env.Evidence = refs
	default:
		return record.EventEnvelope{}, fmt.Errorf("unknown event type %q at position %d", r.eventType, r.position)
	}

	return env, nil
}
