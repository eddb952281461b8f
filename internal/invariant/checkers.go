package invariant

import (
	"fmt"
	"strconv"

	"github.com/tmalloy/augur/internal/outcome"
	"github.com/tmalloy/augur/internal/projection"
	"github.com/tmalloy/augur/internal/record"
)

// CheckPredictionAvailability stops any candidate that requires a
// current prediction for a scope that has none.
func CheckPredictionAvailability(state projection.State, cand Candidate, _ record.ObserverFrame) outcome.Outcome[outcome.Unit] {
	if !cand.RequiresPrediction {
		return outcome.NotApplicable[outcome.Unit](PredictionAvailability)
	}

	if _, ok := state.Current[cand.Scope.Key()]; !ok {
		return outcome.Stop[outcome.Unit](outcome.Rationale{
			Code:        CodeNoCurrentPrediction,
			InvariantID: PredictionAvailability,
			Message:     fmt.Sprintf("no current prediction for scope %s", cand.Scope),
			Details:     map[string]string{"scope": cand.Scope.String()},
			Evidence:    cand.Evidence,
		})
	}

	return outcome.Continue(outcome.Unit{}, outcome.Rationale{
		Code:        "prediction_present",
		InvariantID: PredictionAvailability,
		Message:     fmt.Sprintf("scope %s has a current prediction", cand.Scope),
	})
}

// CheckEvidenceLinkCompleteness guards the evidence trail behind
// write-consequential actions, and doubles as the write-before-use
// verification in the post-write phase.
//
/// Ordering inside the check matters: an unavailable log stops first
// (nothing can be verified), then a just-written id that re-projection
// does not show as current (log/projection inconsistency or a racing
// writer), then an empty evidence trail on the current prediction.
func CheckEvidenceLinkCompleteness(state projection.State, cand Candidate, _ record.ObserverFrame) outcome.Outcome[outcome.Unit] {
	if !cand.WriteConsequential && cand.JustWrittenID == "" {
		return outcome.NotApplicable[outcome.Unit](EvidenceLinkCompleteness)
	}

	if !cand.LogAvailable {
		return outcome.Stop[outcome.Unit](outcome.Rationale{
			Code:        CodeLogUnavailable,
			InvariantID: EvidenceLinkCompleteness,
			Message:     "prediction log probe failed; evidence links cannot be verified",
			Details:     map[string]string{"scope": cand.Scope.String()},
			Evidence:    cand.Evidence,
		})
	}

	if cand.JustWrittenID != "" {
		if current := state.Current[cand.Scope.Key()]; current != cand.JustWrittenID {
			return outcome.Stop[outcome.Unit](outcome.Rationale{
				Code:        CodeWriteBeforeUse,
				InvariantID: EvidenceLinkCompleteness,
				Message:     "just-written prediction is not retrievable as current",
				Details: map[string]string{
					"scope":      cand.Scope.String(),
					"written_id": cand.JustWrittenID,
					"current_id": current,
				},
				Evidence: cand.Evidence,
			})
		}
	}

	if cand.WriteConsequential {
		current, ok := state.CurrentPrediction(cand.Scope)
		if ok && len(current.Evidence) == 0 {
			return outcome.Stop[outcome.Unit](outcome.Rationale{
				Code:        CodeMissingEvidenceLinks,
				InvariantID: EvidenceLinkCompleteness,
				Message:     "current prediction has no evidence links; write-consequential action refused",
				Details: map[string]string{
					"scope":         cand.Scope.String(),
					"prediction_id": current.ID,
				},
				Evidence: cand.Evidence,
			})
		}
	}

	return outcome.Continue(outcome.Unit{}, outcome.Rationale{
		Code:        "evidence_links_verified",
		InvariantID: EvidenceLinkCompleteness,
		Message:     "evidence trail verified",
	})
}

// CheckPredictionOutcomeBinding validates resolution candidates: a
// resolution must name the prediction it binds to, and an observed error
// metric, where required, must be numeric.
func CheckPredictionOutcomeBinding(_ projection.State, cand Candidate, _ record.ObserverFrame) outcome.Outcome[outcome.Unit] {
	if cand.Kind != KindResolve {
		return outcome.NotApplicable[outcome.Unit](PredictionOutcomeBinding)
	}

	if cand.PredictionID == "" {
		return outcome.Stop[outcome.Unit](outcome.Rationale{
			Code:        CodeMissingPredictionID,
			InvariantID: PredictionOutcomeBinding,
			Message:     "resolution has no prediction id to bind to",
			Details:     map[string]string{"scope": cand.Scope.String()},
			Evidence:    cand.Evidence,
		})
	}

	if cand.ErrorMetricRequired {
		if _, err := strconv.ParseFloat(cand.ErrorMetric, 64); err != nil {
			return outcome.Stop[outcome.Unit](outcome.Rationale{
				Code:        CodeNonNumericErrorMetric,
				InvariantID: PredictionOutcomeBinding,
				Message:     fmt.Sprintf("observed error metric %q is not numeric", cand.ErrorMetric),
				Details: map[string]string{
					"prediction_id": cand.PredictionID,
					"error_metric":  cand.ErrorMetric,
				},
				Evidence: cand.Evidence,
			})
		}
	}

	return outcome.Continue(outcome.Unit{}, outcome.Rationale{
		Code:        "binding_complete",
		InvariantID: PredictionOutcomeBinding,
		Message:     "resolution binds to " + cand.PredictionID,
	})
}

// CheckExplainableHaltPayload verifies a halt under construction carries
// the full explainability triple. NewHaltRecord already refuses to build
// anything less, so a stop here means a halt was assembled around the
// constructor - a bug this check keeps out of the log.
func CheckExplainableHaltPayload(_ projection.State, cand Candidate, _ record.ObserverFrame) outcome.Outcome[outcome.Unit] {
	if cand.Halt == nil {
		return outcome.NotApplicable[outcome.Unit](ExplainableHaltPayload)
	}

	missing := ""
	switch {
	case cand.Halt.InvariantID == "":
		missing = "invariant_id"
	case cand.Halt.Details == nil:
		missing = "details"
	case cand.Halt.Evidence == nil:
		missing = "evidence"
	}
	if missing != "" {
		return outcome.Stop[outcome.Unit](outcome.Rationale{
			Code:        CodeHaltPayloadIncomplete,
			InvariantID: ExplainableHaltPayload,
			Message:     "halt record is missing required field " + missing,
			Details:     map[string]string{"missing_field": missing, "halt_code": cand.Halt.Code},
			Evidence:    cand.Evidence,
		})
	}

	return outcome.Continue(outcome.Unit{}, outcome.Rationale{
		Code:        "halt_payload_complete",
		InvariantID: ExplainableHaltPayload,
		Message:     "halt payload carries invariant_id, details and evidence",
	})
}

// CheckAuthorizationScope stops candidates whose observer frame is not
// allowed to evaluate the phase's invariants or lacks the candidate's
// required capability. Fail-closed: an empty frame authorizes nothing.
func CheckAuthorizationScope(_ projection.State, cand Candidate, frame record.ObserverFrame) outcome.Outcome[outcome.Unit] {
	for _, id := range cand.PendingInvariants {
		if !frame.MayEvaluate(id) {
			return outcome.Stop[outcome.Unit](outcome.Rationale{
				Code:        CodeObserverNotAuthorized,
				InvariantID: AuthorizationScope,
				Message:     fmt.Sprintf("observer role %q may not evaluate invariant %s", frame.Role, id),
				Details: map[string]string{
					"role":      frame.Role,
					"invariant": id,
				},
				Evidence: cand.Evidence,
			})
		}
	}

	if cand.RequiredCapability != "" && !frame.HasCapability(cand.RequiredCapability) {
		return outcome.Stop[outcome.Unit](outcome.Rationale{
			Code:        CodeObserverNotAuthorized,
			InvariantID: AuthorizationScope,
			Message:     fmt.Sprintf("observer role %q lacks capability %q", frame.Role, cand.RequiredCapability),
			Details: map[string]string{
				"role":       frame.Role,
				"capability": cand.RequiredCapability,
			},
			Evidence: cand.Evidence,
		})
	}

	return outcome.Continue(outcome.Unit{}, outcome.Rationale{
		Code:        "observer_authorized",
		InvariantID: AuthorizationScope,
		Message:     fmt.Sprintf("observer role %q authorized", frame.Role),
	})
}
