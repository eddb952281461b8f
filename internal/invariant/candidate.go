package invariant

import "github.com/tmalloy/augur/internal/record"

// Kind classifies what a candidate transition wants to do.
type Kind string

const (
	// KindEnsure asks for a current prediction for a scope, issuing one
	// if none exists.
	KindEnsure Kind = "ensure"

	// KindAct is an externally consequential action gated on the
	// scope's current prediction.
	KindAct Kind = "act"

	// KindResolve binds an observed outcome to a prediction.
	KindResolve Kind = "resolve"

	// KindNote records evidence without consuming a prediction.
	KindNote Kind = "note"
)

// Candidate is the transition a gate evaluates, assembled by the
// orchestrator before each phase. It carries everything checkers need so
// they can stay pure: even the log availability probe result is sampled
// up front and passed in as data.
type Candidate struct {
	Scope record.Scope
	Kind  Kind

	// RequiresPrediction marks candidates that cannot proceed without a
	// current prediction for their scope.
	RequiresPrediction bool

	// WriteConsequential marks candidates whose downstream effect
	// writes to the world. These demand a non-empty evidence trail on
	// the prediction they rest on.
	WriteConsequential bool

	// RequiredCapability is the capability the observer must hold for
	// this candidate. Empty means none required.
	RequiredCapability string

	// PredictionID is the prediction a resolution binds to. Only
	// meaningful for KindResolve.
	PredictionID string

	// ErrorMetric is the observed error in decimal form, and
	// ErrorMetricRequired says whether this resolution must carry one.
	ErrorMetric         string
	ErrorMetricRequired bool

	// JustWrittenID is set during the post-write phase: the prediction
	// id whose append just returned success. The write-before-use check
	// verifies re-projection shows it as current.
	JustWrittenID string

	// LogAvailable is the result of the availability probe taken
	// immediately before gating.
	LogAvailable bool

	// PendingInvariants lists the invariant ids the current phase is
	// about to evaluate, in order. authorization_scope checks the
	// observer is allowed each of them.
	PendingInvariants []string

	// Halt is a halt record under construction, present during the
	// pre-output phase when the engine is about to emit one.
	Halt *record.HaltRecord

	// Evidence carried by the candidate itself (e.g. a resolution's
	// observation refs). Gate rationales quote it so halts stay
	// explainable without a log lookup.
	Evidence []record.EvidenceRef
}
