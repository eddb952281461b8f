package outcome

// Merge folds a sequence of unit outcomes into one, in evaluation order.
//
// Dominance: any STOP makes the merge a STOP; otherwise the worst validity
// wins (INVALID > DEGRADED > VALID). Hints and issues concatenate in order.
// The primary rationale is the first STOP's; if nothing stopped, the first
// outcome with non-VALID validity; otherwise the first outcome's.
//
// Merging is monotonic: no combination or ordering of inputs can turn a
// STOP back into a CONTINUE.
//
// Merging zero outcomes yields a CONTINUE/VALID outcome with an empty-gate
// rationale, which lets a phase with no registered checkers pass cleanly.
func Merge(outs ...Outcome[Unit]) Outcome[Unit] {
	if len(outs) == 0 {
		return Outcome[Unit]{
			Flow:      FlowContinue,
			Validity:  ValidityValid,
			Rationale: Rationale{Code: "empty_gate", Message: "no checks registered for this phase"},
		}
	}

	merged := Outcome[Unit]{
		Flow:      FlowContinue,
		Validity:  ValidityValid,
		Rationale: outs[0].Rationale,
	}

	primarySet := false // true once a STOP rationale has been adopted
	degradedSet := false

	for _, o := range outs {
		if o.Stopped() && !primarySet {
			merged.Rationale = o.Rationale
			primarySet = true
		} else if !primarySet && !degradedSet && o.Validity != ValidityValid {
			merged.Rationale = o.Rationale
			degradedSet = true
		}

		if o.Stopped() {
			merged.Flow = FlowStop
		}
		if o.Validity.rank() > merged.Validity.rank() {
			merged.Validity = o.Validity
		}
		merged.Hints = append(merged.Hints, o.Hints...)
		merged.Issues = append(merged.Issues, o.Issues...)
	}

	return merged
}
