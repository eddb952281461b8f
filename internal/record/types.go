package record

import (
	"fmt"
	"time"
)

// Scope identifies what a prediction or action concerns:
// (mission, entity, variable). Immutable value type; equality is
// structural. Scope.Key() is the map key for "current" lookups.
type Scope struct {
	Mission  string `json:"mission"`
	Entity   string `json:"entity"`
	Variable string `json:"variable"`
}

// Key returns the canonical map key for this scope.
// The unit separator keeps "a/b,c" and "a,b/c" style collisions impossible.
func (s Scope) Key() string {
	return s.Mission + "\x1f" + s.Entity + "\x1f" + s.Variable
}

// String renders the scope for logs and messages.
func (s Scope) String() string {
	return fmt.Sprintf("%s/%s/%s", s.Mission, s.Entity, s.Variable)
}

// IsZero reports whether the scope is entirely empty.
func (s Scope) IsZero() bool {
	return s.Mission == "" && s.Entity == "" && s.Variable == ""
}

// EvidenceRef points at supporting evidence without embedding the payload.
// Kind names the evidence class ("observation", "document", "sensor"),
// ID is the stable identifier in whatever system holds the payload.
type EvidenceRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Scalar is a normalized quantity in parts-per-million of 1.0.
// Confidence 0.85 is Scalar(850000). Integers keep canonical
// serialization and content hashing deterministic; floats are forbidden
// in anything that reaches the log.
type Scalar int64

// ScalarFromFloat converts a [0,1] float to parts-per-million, clamping
// out-of-range inputs. Conversion happens once, at the port boundary.
func ScalarFromFloat(f float64) Scalar {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return Scalar(1_000_000)
	}
	return Scalar(f*1_000_000 + 0.5)
}

// Float converts back to a float64 in [0,1] for display and heuristics.
func (s Scalar) Float() float64 {
	return float64(s) / 1_000_000
}

// Distribution is a probability distribution in normalized form. Whatever
// internal shape the predictor produced (point estimate, buckets,
// quantiles), it always carries a confidence and an uncertainty scalar.
type Distribution struct {
	// Kind names the internal shape: "point", "buckets", "quantiles".
	Kind string `json:"kind"`

	// Support maps outcome labels to mass, in parts-per-million.
	// Empty for point estimates.
	Support map[string]Scalar `json:"support,omitempty"`

	// Confidence is the distribution's normalized confidence scalar.
	Confidence Scalar `json:"confidence"`

	// Uncertainty is the normalized uncertainty scalar. Independent of
	// confidence: a confident prediction about a noisy variable keeps a
	// high uncertainty.
	Uncertainty Scalar `json:"uncertainty"`
}

// PredictionRecord is an issued prediction. Created only by the
// orchestrator during ensure-current; never mutated after append.
// Supersession is expressed by a NEW record whose Supersedes set names
// this one.
type PredictionRecord struct {
	ID         string       `json:"id"` // content-addressed, see PredictionID
	Scope      Scope        `json:"scope"`
	IssuedAt   time.Time    `json:"issued_at"`
	ValidFrom  time.Time    `json:"valid_from"`
	ValidUntil time.Time    `json:"valid_until"`
	Raw        Distribution `json:"raw"`
	Calibrated Distribution `json:"calibrated"`

	// Evidence the prediction rests on. May be empty for exploratory
	// predictions; write-consequential actions are gated on it being
	// populated (evidence_link_completeness).
	Evidence []EvidenceRef `json:"evidence"`

	// Supersedes lists prior prediction ids this record replaces.
	Supersedes []string `json:"supersedes,omitempty"`
}

// ResolutionRecord binds a prediction to its observed real-world value.
// It never retracts the prediction's currency and never rewrites the
// prediction; it exists so calibration feedback has something durable to
// work from.
type ResolutionRecord struct {
	ID           string    `json:"id"` // content-addressed, see ResolutionID
	PredictionID string    `json:"prediction_id"`
	ObservedAt   time.Time `json:"observed_at"`

	// ObservedValue is the observed outcome label or reading.
	ObservedValue string `json:"observed_value"`

	// ErrorMetric is the observed error in canonical decimal form
	// (e.g. "0.12"). Empty when the resolution carries no error metric;
	// when present it must parse as a number (prediction_outcome_binding).
	ErrorMetric string `json:"error_metric,omitempty"`

	Evidence []EvidenceRef `json:"evidence"`
}

// HaltRecord is the durable form of a STOP outcome. Every halt carries
// the triple (invariant id, details, evidence) - by construction, not by
// convention: NewHaltRecord rejects anything missing a field.
type HaltRecord struct {
	ID          string            `json:"id"` // content-addressed, see HaltID
	InvariantID string            `json:"invariant_id"`
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	Details     map[string]string `json:"details"`
	Evidence    []EvidenceRef     `json:"evidence"`
	Scope       Scope             `json:"scope"`
	HaltedAt    time.Time         `json:"halted_at"`
}

// NewHaltRecord builds a HaltRecord, enforcing the explainability triple.
//
// Details and Evidence must be present as fields (non-nil) but may be
// empty: a halt with nothing to add still says so explicitly, it never
// omits the field. A missing invariant id, nil details map or nil
// evidence slice is a shape violation and fails construction - malformed
// halts must never reach the log.
func NewHaltRecord(invariantID, code, message string, details map[string]string, evidence []EvidenceRef, scope Scope, at time.Time) (HaltRecord, error) {
	if invariantID == "" {
		return HaltRecord{}, fmt.Errorf("halt record: missing invariant id (code=%q)", code)
	}
	if details == nil {
		return HaltRecord{}, fmt.Errorf("halt record: details field absent (invariant=%s)", invariantID)
	}
	if evidence == nil {
		return HaltRecord{}, fmt.Errorf("halt record: evidence field absent (invariant=%s)", invariantID)
	}
	h := HaltRecord{
		InvariantID: invariantID,
		Code:        code,
		Message:     message,
		Details:     details,
		Evidence:    evidence,
		Scope:       scope,
		HaltedAt:    at,
	}
	id, err := HaltID(h)
	if err != nil {
		return HaltRecord{}, fmt.Errorf("halt record: %w", err)
	}
	h.ID = id
	return h, nil
}

// ObserverFrame is the authorization envelope a gate evaluation runs
// under: who is acting, what capabilities they hold, and which invariants
// they are permitted to evaluate. Constructed per episode, read-only for
// its duration.
type ObserverFrame struct {
	Role         string   `json:"role"`
	Capabilities []string `json:"capabilities"`
	AuthLevel    int      `json:"auth_level"`

	// AllowedInvariants lists invariant ids this observer may evaluate.
	// Empty means none; authorization is fail-closed.
	AllowedInvariants []string `json:"allowed_invariants"`
}

// HasCapability reports whether the frame grants a capability.
func (f ObserverFrame) HasCapability(cap string) bool {
	for _, c := range f.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// MayEvaluate reports whether the frame permits evaluating an invariant.
func (f ObserverFrame) MayEvaluate(invariantID string) bool {
	for _, id := range f.AllowedInvariants {
		if id == invariantID {
			return true
		}
	}
	return false
}
