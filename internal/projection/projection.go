package projection

import (
	"maps"

	"github.com/tmalloy/augur/internal/record"
)

// State is the derived, rebuildable view of prediction currency.
// Never a source of truth: always reconstructible by replaying the log
// from empty state.
type State struct {
	// Current maps scope key -> current prediction id.
	Current map[string]string

	// Predictions indexes every prediction seen, by id. Lets gate
	// checkers inspect the current record (evidence links, validity
	// window) without re-reading the log.
	Predictions map[string]record.PredictionRecord

	// Resolved maps prediction id -> resolution id for predictions that
	// have been resolved. Resolution never changes Current.
	Resolved map[string]string

	// Position is the highest log position folded in ("as-of").
	Position int64

	// EventCount is the total number of events folded, including event
	// types that do not affect currency. Audit only.
	EventCount int64
}

// Empty returns the projection of an empty log.
func Empty() State {
	return State{
		Current:     make(map[string]string),
		Predictions: make(map[string]record.PredictionRecord),
		Resolved:    make(map[string]string),
	}
}

// CurrentPrediction returns the current prediction record for a scope,
// if the scope has one.
func (s State) CurrentPrediction(scope record.Scope) (record.PredictionRecord, bool) {
	id, ok := s.Current[scope.Key()]
	if !ok {
		return record.PredictionRecord{}, false
	}
	p, ok := s.Predictions[id]
	return p, ok
}

// Project folds envelopes in the given order into a fresh State.
//
// Pure: no I/O, no clock reads, no dependence on anything but the
// arguments. Events must already be in log order; Project never
// reorders.
func Project(events []record.EventEnvelope) State {
	s := Empty()
	for _, env := range events {
		s.EventCount++
		if env.Position > s.Position {
			s.Position = env.Position
		}

		switch env.Type {
		case record.EventPredictionIssued:
			if env.Prediction == nil {
				continue // malformed envelopes cannot affect currency
			}
			p := *env.Prediction
			s.Predictions[p.ID] = p
			s.Current[p.Scope.Key()] = p.ID
		case record.EventPredictionResolved:
			if env.Resolution == nil {
				continue
			}
			s.Resolved[env.Resolution.PredictionID] = env.Resolution.ID
		default:
			// Halts, evidence notes: counted, no currency change.
		}
	}
	return s
}

// Equal reports field-for-field equality of two states. Used by replay
// verification: projecting the same log twice must compare equal.
func Equal(a, b State) bool {
	if a.Position != b.Position || a.EventCount != b.EventCount {
		return false
	}
	if !maps.Equal(a.Current, b.Current) || !maps.Equal(a.Resolved, b.Resolved) {
		return false
	}
	if len(a.Predictions) != len(b.Predictions) {
		return false
	}
	for id, pa := range a.Predictions {
		pb, ok := b.Predictions[id]
		if !ok || !predictionEqual(pa, pb) {
			return false
		}
	}
	return true
}

func predictionEqual(a, b record.PredictionRecord) bool {
	if a.ID != b.ID || a.Scope != b.Scope {
		return false
	}
	if !a.IssuedAt.Equal(b.IssuedAt) || !a.ValidFrom.Equal(b.ValidFrom) || !a.ValidUntil.Equal(b.ValidUntil) {
		return false
	}
	if !distributionEqual(a.Raw, b.Raw) || !distributionEqual(a.Calibrated, b.Calibrated) {
		return false
	}
	if len(a.Evidence) != len(b.Evidence) {
		return false
	}
	for i := range a.Evidence {
		if a.Evidence[i] != b.Evidence[i] {
			return false
		}
	}
	if len(a.Supersedes) != len(b.Supersedes) {
		return false
	}
	for i := range a.Supersedes {
		if a.Supersedes[i] != b.Supersedes[i] {
			return false
		}
	}
	return true
}

func distributionEqual(a, b record.Distribution) bool {
	return a.Kind == b.Kind &&
		a.Confidence == b.Confidence &&
		a.Uncertainty == b.Uncertainty &&
		maps.Equal(a.Support, b.Support)
}
