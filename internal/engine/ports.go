package engine

import (
	"context"

	"github.com/tmalloy/augur/internal/record"
)

// Predictor produces a raw probability distribution for a scope from
// evidence. Pure from the engine's perspective; a failure surfaces as a
// DEGRADED outcome on the issued prediction, never as a silent default.
type Predictor interface {
	Predict(ctx context.Context, scope record.Scope, evidence []record.EvidenceRef) (record.Distribution, error)
}

// Calibrator adjusts raw distributions and consumes resolution feedback.
//
// Update is fire-and-forget from the engine's viewpoint but is called
// exactly once per resolution: after the resolution's append has
// succeeded, before the outcome is returned.
type Calibrator interface {
	Calibrate(ctx context.Context, raw record.Distribution, scope record.Scope) (record.Distribution, error)
	Update(ctx context.Context, prediction record.PredictionRecord, resolution record.ResolutionRecord) error
}

// Outbox records escalation intent for the human-in-the-loop
// collaborator. The engine only ever records intent; it never blocks
// waiting for a human, and timeouts are entirely the collaborator's
// concern.
type Outbox interface {
	CreateRequest(ctx context.Context, title, question, contextNote string) (requestID string, err error)
}

// CapabilityPolicy is the capability adapter boundary: the engine asks
// whether a side-effecting capability is allowed for an observer before
// treating the action as authorized. Execution of the side effect is
// entirely external.
type CapabilityPolicy interface {
	Allows(capability string, frame record.ObserverFrame) bool
}

// allowAllPolicy is the default when no policy adapter is wired. It
// delegates entirely to the observer frame's own capability set, which
// the authorization_scope invariant already enforces.
type allowAllPolicy struct{}

func (allowAllPolicy) Allows(string, record.ObserverFrame) bool { return true }
