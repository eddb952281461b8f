package record

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Domain prefixes for content-addressed identity. The version suffix
// leaves room for algorithm migration without colliding with old ids.
const (
	DomainPrediction = "augur/prediction/v1"
	DomainResolution = "augur/resolution/v1"
	DomainHalt       = "augur/halt/v1"
)

// hashWithDomain computes SHA-256 over domain + 0x00 + data. The null
// separator removes any ambiguity about where the domain ends.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalTime renders a timestamp as UTC nanoseconds for hashing.
// Integer form keeps time zone and formatting drift out of identity.
func canonicalTime(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func canonicalEvidence(refs []EvidenceRef) []any {
	out := make([]any, len(refs))
	for i, r := range refs {
		out[i] = map[string]any{"kind": r.Kind, "id": r.ID}
	}
	return out
}

func canonicalDistribution(d Distribution) map[string]any {
	m := map[string]any{
		"kind":        d.Kind,
		"confidence":  d.Confidence,
		"uncertainty": d.Uncertainty,
	}
	if len(d.Support) > 0 {
		support := make(map[string]any, len(d.Support))
		for label, mass := range d.Support {
			support[label] = mass
		}
		m["support"] = support
	}
	return m
}

func canonicalScope(s Scope) map[string]any {
	return map[string]any{
		"mission":  s.Mission,
		"entity":   s.Entity,
		"variable": s.Variable,
	}
}

// PredictionID computes the content-addressed id of a prediction.
// The id covers everything that makes the prediction what it is: scope,
// timestamps, both distributions, evidence and lineage. The same logical
// prediction hashes identically across restarts and replays.
func PredictionID(p PredictionRecord) (string, error) {
	supersedes := make([]any, len(p.Supersedes))
	for i, id := range p.Supersedes {
		supersedes[i] = id
	}
	obj := map[string]any{
		"scope":       canonicalScope(p.Scope),
		"issued_at":   canonicalTime(p.IssuedAt),
		"valid_from":  canonicalTime(p.ValidFrom),
		"valid_until": canonicalTime(p.ValidUntil),
		"raw":         canonicalDistribution(p.Raw),
		"calibrated":  canonicalDistribution(p.Calibrated),
		"evidence":    canonicalEvidence(p.Evidence),
		"supersedes":  supersedes,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("prediction id: %w", err)
	}
	return hashWithDomain(DomainPrediction, canonical), nil
}

// ResolutionID computes the content-addressed id of a resolution.
func ResolutionID(r ResolutionRecord) (string, error) {
	obj := map[string]any{
		"prediction_id":  r.PredictionID,
		"observed_at":    canonicalTime(r.ObservedAt),
		"observed_value": r.ObservedValue,
		"evidence":       canonicalEvidence(r.Evidence),
	}
	if r.ErrorMetric != "" {
		obj["error_metric"] = r.ErrorMetric
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("resolution id: %w", err)
	}
	return hashWithDomain(DomainResolution, canonical), nil
}

// HaltID computes the content-addressed id of a halt record.
func HaltID(h HaltRecord) (string, error) {
	details := make(map[string]any, len(h.Details))
	for k, v := range h.Details {
		details[k] = v
	}
	obj := map[string]any{
		"invariant_id": h.InvariantID,
		"code":         h.Code,
		"message":      h.Message,
		"details":      details,
		"evidence":     canonicalEvidence(h.Evidence),
		"scope":        canonicalScope(h.Scope),
		"halted_at":    canonicalTime(h.HaltedAt),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("halt id: %w", err)
	}
	return hashWithDomain(DomainHalt, canonical), nil
}

// NewPrediction assembles a PredictionRecord and stamps its
// content-addressed id. Evidence defaults to an empty (never nil) slice
// so the field is always present in serialized form.
func NewPrediction(scope Scope, issuedAt, validFrom, validUntil time.Time, raw, calibrated Distribution, evidence []EvidenceRef, supersedes []string) (PredictionRecord, error) {
	if evidence == nil {
		evidence = []EvidenceRef{}
	}
	p := PredictionRecord{
		Scope:      scope,
		IssuedAt:   issuedAt,
		ValidFrom:  validFrom,
		ValidUntil: validUntil,
		Raw:        raw,
		Calibrated: calibrated,
		Evidence:   evidence,
		Supersedes: supersedes,
	}
	id, err := PredictionID(p)
	if err != nil {
		return PredictionRecord{}, err
	}
	p.ID = id
	return p, nil
}

// NewResolution assembles a ResolutionRecord and stamps its id.
func NewResolution(predictionID string, observedAt time.Time, observedValue, errorMetric string, evidence []EvidenceRef) (ResolutionRecord, error) {
	if evidence == nil {
		evidence = []EvidenceRef{}
	}
	r := ResolutionRecord{
		PredictionID:  predictionID,
		ObservedAt:    observedAt,
		ObservedValue: observedValue,
		ErrorMetric:   errorMetric,
		Evidence:      evidence,
	}
	id, err := ResolutionID(r)
	if err != nil {
		return ResolutionRecord{}, err
	}
	r.ID = id
	return r, nil
}
