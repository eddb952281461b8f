package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/tmalloy/augur/internal/eventlog"
	"github.com/tmalloy/augur/internal/gate"
	"github.com/tmalloy/augur/internal/invariant"
	"github.com/tmalloy/augur/internal/outcome"
	"github.com/tmalloy/augur/internal/projection"
	"github.com/tmalloy/augur/internal/record"
)

// DefaultValidityWindow is how long an issued prediction stays valid
// when the caller doesn't say otherwise.
const DefaultValidityWindow = 24 * time.Hour

// Engine is the orchestrator. One Engine serves many scopes; callers
// uphold single-writer-per-scope (see package doc).
type Engine struct {
	log        eventlog.Log
	predictor  Predictor
	calibrator Calibrator
	outbox     Outbox
	policy     CapabilityPolicy
	pipeline   *gate.Pipeline
	logger     *slog.Logger
	cache      *projection.Cache
	clock      *Clock
	trace      TraceSink
	now        func() time.Time
	validity   time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithOutbox wires the escalation outbox port.
func WithOutbox(o Outbox) Option {
	return func(e *Engine) { e.outbox = o }
}

// WithPolicy wires the capability policy adapter.
func WithPolicy(p CapabilityPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithPipeline replaces the default gate pipeline. Used by tests that
// exercise ordering contracts.
func WithPipeline(p *gate.Pipeline) Option {
	return func(e *Engine) { e.pipeline = p }
}

// WithTraceSink wires a trace sink; nil disables tracing.
func WithTraceSink(t TraceSink) Option {
	return func(e *Engine) { e.trace = t }
}

// WithNow injects the wall-clock source. Tests pass a fixed clock so
// content-addressed ids are reproducible.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithValidityWindow sets the validity window stamped on issued
// predictions.
func WithValidityWindow(d time.Duration) Option {
	return func(e *Engine) { e.validity = d }
}

// New wires an Engine over a log and the predictor/calibrator ports.
// The invariant registry and gate pipeline are built here so duplicate
// invariant ids or dangling phase references fail at startup, not at
// call time.
func New(log eventlog.Log, predictor Predictor, calibrator Calibrator, opts ...Option) (*Engine, error) {
	if log == nil {
		return nil, fmt.Errorf("engine: nil event log")
	}
	if predictor == nil {
		return nil, fmt.Errorf("engine: nil predictor")
	}
	if calibrator == nil {
		return nil, fmt.Errorf("engine: nil calibrator")
	}

	pipeline, err := gate.NewPipeline(invariant.Default())
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e := &Engine{
		log:        log,
		predictor:  predictor,
		calibrator: calibrator,
		policy:     allowAllPolicy{},
		pipeline:   pipeline,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		cache:      projection.NewCache(),
		clock:      NewClock(),
		now:        time.Now,
		validity:   DefaultValidityWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// project reads the full log and folds it. The cache only answers when
// its stored position matches the log's tail exactly; it is invalidated
// on every append this engine performs.
func (e *Engine) project(ctx context.Context) (projection.State, error) {
	events, err := e.log.ReadFrom(ctx, eventlog.Start)
	if err != nil {
		return projection.State{}, err
	}
	var tail int64
	if len(events) > 0 {
		tail = events[len(events)-1].Position
	}
	if cached, ok := e.cache.Get(tail); ok {
		return cached, nil
	}
	state := projection.Project(events)
	e.cache.Put(state)
	return state, nil
}

func (e *Engine) record(op, stage string, scope record.Scope, o outcome.Outcome[outcome.Unit], position int64) {
	if e.trace == nil {
		return
	}
	e.trace.Record(TraceEvent{
		Step:        e.clock.Next(),
		Op:          op,
		Stage:       stage,
		Scope:       scope.String(),
		Flow:        string(o.Flow),
		Code:        o.Rationale.Code,
		InvariantID: o.Rationale.InvariantID,
		Position:    position,
	})
}

// EnsureCurrent makes sure the scope has a current prediction and
// returns it.
//
// With a current prediction in projection, it is returned as-is and
// nothing is appended. Without one, the engine can only synthesize a new
// prediction if the caller brought evidence; an evidence-less ensure
// against an empty scope halts with no_current_prediction rather than
// fabricating an unsupported prediction.
func (e *Engine) EnsureCurrent(ctx context.Context, scope record.Scope, evidence []record.EvidenceRef, frame record.ObserverFrame) outcome.Outcome[record.PredictionRecord] {
	const op = "ensure"

	state, err := e.project(ctx)
	if err != nil {
		return halt[record.PredictionRecord](e, ctx, op, scope, frame, storeUnavailableRationale(scope, err))
	}

	cand := invariant.Candidate{
		Scope:              scope,
		Kind:               invariant.KindEnsure,
		RequiresPrediction: len(evidence) == 0,
		LogAvailable:       e.log.IsAvailable(ctx),
		Evidence:           evidence,
	}

	pre := e.pipeline.Evaluate(gate.PhasePreConsume, state, cand, frame)
	e.record(op, "gate:pre_consume", scope, pre, 0)
	if pre.Stopped() {
		return halt[record.PredictionRecord](e, ctx, op, scope, frame, pre.Rationale, pre.Hints...)
	}

	if current, ok := state.CurrentPrediction(scope); ok {
		out := e.pipeline.Evaluate(gate.PhasePreOutput, state, cand, frame)
		e.record(op, "gate:pre_output", scope, out, 0)
		if out.Stopped() {
			return halt[record.PredictionRecord](e, ctx, op, scope, frame, out.Rationale, out.Hints...)
		}
		e.logger.Debug("prediction already current", "scope", scope.String(), "prediction", current.ID)
		return outcome.Carry(outcome.Merge(pre, out), current)
	}

	return e.issue(ctx, op, state, scope, evidence, nil, frame, pre)
}

// Supersede issues a new prediction for the scope that explicitly
// replaces the current one. The old record stays in the log untouched;
// lineage lives in the new record's Supersedes set.
func (e *Engine) Supersede(ctx context.Context, scope record.Scope, evidence []record.EvidenceRef, frame record.ObserverFrame) outcome.Outcome[record.PredictionRecord] {
	const op = "supersede"

	state, err := e.project(ctx)
	if err != nil {
		return halt[record.PredictionRecord](e, ctx, op, scope, frame, storeUnavailableRationale(scope, err))
	}

	cand := invariant.Candidate{
		Scope:        scope,
		Kind:         invariant.KindEnsure,
		LogAvailable: e.log.IsAvailable(ctx),
		Evidence:     evidence,
	}

	pre := e.pipeline.Evaluate(gate.PhasePreConsume, state, cand, frame)
	e.record(op, "gate:pre_consume", scope, pre, 0)
	if pre.Stopped() {
		return halt[record.PredictionRecord](e, ctx, op, scope, frame, pre.Rationale, pre.Hints...)
	}

	var supersedes []string
	if id, ok := state.Current[scope.Key()]; ok {
		supersedes = []string{id}
	}
	return e.issue(ctx, op, state, scope, evidence, supersedes, frame, pre)
}

// issue synthesizes, appends, and write-verifies a new prediction.
// Shared by EnsureCurrent and Supersede.
func (e *Engine) issue(ctx context.Context, op string, state projection.State, scope record.Scope, evidence []record.EvidenceRef, supersedes []string, frame record.ObserverFrame, pre outcome.Outcome[outcome.Unit]) outcome.Outcome[record.PredictionRecord] {
	degraded := false
	raw, err := e.predictor.Predict(ctx, scope, evidence)
	if err != nil {
		// Never a silent default: the fallback is visible in the
		// distribution kind and the outcome is DEGRADED.
		e.logger.Warn("predictor failed, issuing fallback distribution", "scope", scope.String(), "error", err)
		raw = record.Distribution{Kind: "fallback", Confidence: 0, Uncertainty: record.ScalarFromFloat(1)}
		degraded = true
	}

	calibrated, err := e.calibrator.Calibrate(ctx, raw, scope)
	if err != nil {
		e.logger.Warn("calibrator failed, carrying raw distribution", "scope", scope.String(), "error", err)
		calibrated = raw
		degraded = true
	}

	now := e.now()
	pred, err := record.NewPrediction(scope, now, now, now.Add(e.validity), raw, calibrated, evidence, supersedes)
	if err != nil {
		return halt[record.PredictionRecord](e, ctx, op, scope, frame, outcome.Rationale{
			Code:        "prediction_not_canonicalizable",
			InvariantID: invariant.ExplainableHaltPayload,
			Message:     fmt.Sprintf("prediction could not be canonicalized: %v", err),
			Details:     map[string]string{"scope": scope.String()},
			Evidence:    evidence,
		})
	}

	env := record.EventEnvelope{
		EventID:    record.NewEventID(),
		Type:       record.EventPredictionIssued,
		OccurredAt: now,
		Scope:      scope,
		Observer:   &frame,
		Prediction: &pred,
	}
	pos, err := e.log.Append(ctx, env)
	if err != nil {
		// Nothing committed; the scope's projection is unchanged.
		return halt[record.PredictionRecord](e, ctx, op, scope, frame,
			storeUnavailableRationale(scope, err),
			outcome.Hint{Kind: outcome.HintRetry, Message: "append failed; retry once the store is reachable"},
		)
	}
	e.cache.Invalidate()
	e.logger.Info("prediction issued", "scope", scope.String(), "prediction", pred.ID, "position", pos)

	// Post-write: re-project and verify the append is visible as
	// current before anything downstream may rely on it.
	state2, err := e.project(ctx)
	if err != nil {
		return halt[record.PredictionRecord](e, ctx, op, scope, frame, storeUnavailableRationale(scope, err))
	}
	postCand := invariant.Candidate{
		Scope:         scope,
		Kind:          invariant.KindEnsure,
		JustWrittenID: pred.ID,
		LogAvailable:  e.log.IsAvailable(ctx),
		Evidence:      evidence,
	}
	post := e.pipeline.Evaluate(gate.PhasePostWrite, state2, postCand, frame)
	e.record(op, "gate:post_write", scope, post, pos)
	if post.Stopped() {
		return halt[record.PredictionRecord](e, ctx, op, scope, frame, post.Rationale, post.Hints...)
	}

	outCand := invariant.Candidate{Scope: scope, Kind: invariant.KindEnsure, LogAvailable: postCand.LogAvailable}
	out := e.pipeline.Evaluate(gate.PhasePreOutput, state2, outCand, frame)
	e.record(op, "gate:pre_output", scope, out, pos)
	if out.Stopped() {
		return halt[record.PredictionRecord](e, ctx, op, scope, frame, out.Rationale, out.Hints...)
	}

	final := outcome.Carry(outcome.Merge(pre, post, out), pred)
	if degraded {
		final.Validity = outcome.ValidityDegraded
		final.Rationale = outcome.Rationale{
			Code:        "predictor_degraded",
			InvariantID: final.Rationale.InvariantID,
			Message:     "prediction issued from degraded predictor output",
			Details:     map[string]string{"scope": scope.String()},
		}
		final = final.WithHints(outcome.Hint{Kind: outcome.HintProbe, Message: "re-run prediction once the predictor recovers"})
	}
	return final
}

// Act gates an externally consequential action on the scope's current
// prediction. The engine authorizes; it never executes the side effect.
func (e *Engine) Act(ctx context.Context, scope record.Scope, capability string, frame record.ObserverFrame) outcome.Outcome[record.PredictionRecord] {
	const op = "act"

	state, err := e.project(ctx)
	if err != nil {
		return halt[record.PredictionRecord](e, ctx, op, scope, frame, storeUnavailableRationale(scope, err))
	}

	cand := invariant.Candidate{
		Scope:              scope,
		Kind:               invariant.KindAct,
		RequiresPrediction: true,
		WriteConsequential: true,
		RequiredCapability: capability,
		LogAvailable:       e.log.IsAvailable(ctx),
	}

	pre := e.pipeline.Evaluate(gate.PhasePreConsume, state, cand, frame)
	e.record(op, "gate:pre_consume", scope, pre, 0)
	if pre.Stopped() {
		return halt[record.PredictionRecord](e, ctx, op, scope, frame, pre.Rationale, pre.Hints...)
	}

	if !e.policy.Allows(capability, frame) {
		return halt[record.PredictionRecord](e, ctx, op, scope, frame, outcome.Rationale{
			Code:        invariant.CodeObserverNotAuthorized,
			InvariantID: invariant.AuthorizationScope,
			Message:     fmt.Sprintf("policy refuses capability %q for role %q", capability, frame.Role),
			Details:     map[string]string{"capability": capability, "role": frame.Role},
		}, outcome.Hint{Kind: outcome.HintEscalate, Message: "request capability through the escalation outbox"})
	}

	// Use-gate: the same checks that vet a fresh write vet a
	// consequential use of an existing prediction (log reachable,
	// evidence trail non-empty).
	use := e.pipeline.Evaluate(gate.PhasePostWrite, state, cand, frame)
	e.record(op, "gate:use", scope, use, 0)
	if use.Stopped() {
		return halt[record.PredictionRecord](e, ctx, op, scope, frame, use.Rationale, use.Hints...)
	}

	out := e.pipeline.Evaluate(gate.PhasePreOutput, state, cand, frame)
	e.record(op, "gate:pre_output", scope, out, 0)
	if out.Stopped() {
		return halt[record.PredictionRecord](e, ctx, op, scope, frame, out.Rationale, out.Hints...)
	}

	current, ok := state.CurrentPrediction(scope)
	if !ok {
		// prediction_availability passed, so this cannot happen unless
		// the projection index is inconsistent with itself.
		return halt[record.PredictionRecord](e, ctx, op, scope, frame, outcome.Rationale{
			Code:        invariant.CodeWriteBeforeUse,
			InvariantID: invariant.EvidenceLinkCompleteness,
			Message:     "current prediction id has no indexed record",
			Details:     map[string]string{"scope": scope.String()},
		})
	}
	return outcome.Carry(outcome.Merge(pre, use, out), current)
}

// Resolve binds an observed outcome to a prediction, appends the
// resolution, and feeds the calibrator exactly once.
//
// The binding checks (prediction id present, numeric error metric where
// required) run before the append: a resolution that cannot bind must
// never enter the log.
func (e *Engine) Resolve(ctx context.Context, predictionID, observedValue, errorMetric string, errorMetricRequired bool, evidence []record.EvidenceRef, frame record.ObserverFrame) outcome.Outcome[record.ResolutionRecord] {
	const op = "resolve"

	state, err := e.project(ctx)
	if err != nil {
		return halt[record.ResolutionRecord](e, ctx, op, record.Scope{}, frame, storeUnavailableRationale(record.Scope{}, err))
	}

	var scope record.Scope
	pred, known := state.Predictions[predictionID]
	if known {
		scope = pred.Scope
	}

	cand := invariant.Candidate{
		Scope:               scope,
		Kind:                invariant.KindResolve,
		PredictionID:        predictionID,
		ErrorMetric:         errorMetric,
		ErrorMetricRequired: errorMetricRequired,
		LogAvailable:        e.log.IsAvailable(ctx),
		Evidence:            evidence,
	}

	pre := e.pipeline.Evaluate(gate.PhasePreConsume, state, cand, frame)
	e.record(op, "gate:pre_consume", scope, pre, 0)
	if pre.Stopped() {
		return halt[record.ResolutionRecord](e, ctx, op, scope, frame, pre.Rationale, pre.Hints...)
	}

	if predictionID != "" && !known {
		return halt[record.ResolutionRecord](e, ctx, op, scope, frame, outcome.Rationale{
			Code:        invariant.CodeMissingPredictionID,
			InvariantID: invariant.PredictionOutcomeBinding,
			Message:     fmt.Sprintf("resolution references unknown prediction %s", predictionID),
			Details:     map[string]string{"prediction_id": predictionID},
			Evidence:    evidence,
		})
	}

	bind := e.pipeline.Evaluate(gate.PhasePreOutput, state, cand, frame)
	e.record(op, "gate:pre_output", scope, bind, 0)
	if bind.Stopped() {
		return halt[record.ResolutionRecord](e, ctx, op, scope, frame, bind.Rationale, bind.Hints...)
	}

	now := e.now()
	res, err := record.NewResolution(predictionID, now, observedValue, errorMetric, evidence)
	if err != nil {
		return halt[record.ResolutionRecord](e, ctx, op, scope, frame, outcome.Rationale{
			Code:        "resolution_not_canonicalizable",
			InvariantID: invariant.PredictionOutcomeBinding,
			Message:     fmt.Sprintf("resolution could not be canonicalized: %v", err),
			Details:     map[string]string{"prediction_id": predictionID},
			Evidence:    evidence,
		})
	}

	env := record.EventEnvelope{
		EventID:    record.NewEventID(),
		Type:       record.EventPredictionResolved,
		OccurredAt: now,
		Scope:      scope,
		Observer:   &frame,
		Resolution: &res,
	}
	pos, err := e.log.Append(ctx, env)
	if err != nil {
		return halt[record.ResolutionRecord](e, ctx, op, scope, frame,
			storeUnavailableRationale(scope, err),
			outcome.Hint{Kind: outcome.HintRetry, Message: "append failed; retry once the store is reachable"},
		)
	}
	e.cache.Invalidate()

	// Write verification for resolutions: the appended record must be
	// readable back before feedback fires.
	state2, err := e.project(ctx)
	if err != nil {
		return halt[record.ResolutionRecord](e, ctx, op, scope, frame, storeUnavailableRationale(scope, err))
	}
	if state2.Resolved[predictionID] != res.ID {
		return halt[record.ResolutionRecord](e, ctx, op, scope, frame, outcome.Rationale{
			Code:        invariant.CodeWriteBeforeUse,
			InvariantID: invariant.EvidenceLinkCompleteness,
			Message:     "just-written resolution is not retrievable",
			Details: map[string]string{
				"prediction_id": predictionID,
				"resolution_id": res.ID,
			},
			Evidence: evidence,
		})
	}
	e.logger.Info("prediction resolved", "prediction", predictionID, "resolution", res.ID, "position", pos)

	// Exactly once per resolution, after the append is durable.
	if err := e.calibrator.Update(ctx, pred, res); err != nil {
		e.logger.Warn("calibration update failed", "prediction", predictionID, "error", err)
		return outcome.Continue(res, okRationale("resolution_committed")).
			WithIssues(outcome.IssueRef{
				Kind:    "calibration_update_failed",
				Subject: res.ID,
				Message: err.Error(),
			})
	}

	return outcome.Continue(res, okRationale("resolution_committed"))
}

// NoteEvidence appends an evidence observation for a scope. Currency is
// untouched; the event exists so the audit trail sees what the engine
// saw.
func (e *Engine) NoteEvidence(ctx context.Context, scope record.Scope, refs []record.EvidenceRef, frame record.ObserverFrame) outcome.Outcome[outcome.Unit] {
	const op = "note"

	state, err := e.project(ctx)
	if err != nil {
		return halt[outcome.Unit](e, ctx, op, scope, frame, storeUnavailableRationale(scope, err))
	}

	cand := invariant.Candidate{
		Scope:        scope,
		Kind:         invariant.KindNote,
		LogAvailable: e.log.IsAvailable(ctx),
		Evidence:     refs,
	}
	pre := e.pipeline.Evaluate(gate.PhasePreConsume, state, cand, frame)
	e.record(op, "gate:pre_consume", scope, pre, 0)
	if pre.Stopped() {
		return halt[outcome.Unit](e, ctx, op, scope, frame, pre.Rationale, pre.Hints...)
	}

	env := record.EventEnvelope{
		EventID:    record.NewEventID(),
		Type:       record.EventEvidenceNoted,
		OccurredAt: e.now(),
		Scope:      scope,
		Observer:   &frame,
		Evidence:   refs,
	}
	pos, err := e.log.Append(ctx, env)
	if err != nil {
		return halt[outcome.Unit](e, ctx, op, scope, frame,
			storeUnavailableRationale(scope, err),
			outcome.Hint{Kind: outcome.HintRetry, Message: "append failed; retry once the store is reachable"},
		)
	}
	e.cache.Invalidate()
	e.logger.Debug("evidence noted", "scope", scope.String(), "refs", len(refs), "position", pos)
	return outcome.Continue(outcome.Unit{}, okRationale("evidence_noted"))
}

// Projection projects the current log. Exposed for inspection tooling;
// the returned state is a fresh value the caller owns.
func (e *Engine) Projection(ctx context.Context) (projection.State, error) {
	return e.project(ctx)
}

func okRationale(code string) outcome.Rationale {
	return outcome.Rationale{Code: code, Message: "committed"}
}

// storeUnavailableRationale is the halt rationale for any log port
// failure. The invariant attribution goes to evidence_link_completeness,
// the checker that owns log reachability.
func storeUnavailableRationale(scope record.Scope, err error) outcome.Rationale {
	return outcome.Rationale{
		Code:        "store_unavailable",
		InvariantID: invariant.EvidenceLinkCompleteness,
		Message:     fmt.Sprintf("event store unavailable: %v", err),
		Details:     map[string]string{"scope": scope.String()},
	}
}

// halt turns a STOP rationale into a durable halt record, validates its
// shape through the pre-output gate, appends it (best effort: a store
// that just failed cannot also take the halt - the outcome still carries
// the full explanation), records escalation intent if hinted, and
// returns the STOP outcome.
func halt[T any](e *Engine, ctx context.Context, op string, scope record.Scope, frame record.ObserverFrame, r outcome.Rationale, hints ...outcome.Hint) outcome.Outcome[T] {
	details := r.Details
	if details == nil {
		details = map[string]string{}
	}
	evidence := r.Evidence
	if evidence == nil {
		evidence = []record.EvidenceRef{}
	}

	h, err := record.NewHaltRecord(r.InvariantID, r.Code, r.Message, details, evidence, scope, e.now())
	if err != nil {
		// Unreachable: Stop() guarantees the invariant id and the maps
		// are normalized above. A malformed halt must never be logged,
		// and a rationale this code cannot explain is a programmer
		// error.
		panic(fmt.Sprintf("engine: malformed halt: %v", err))
	}

	shape := e.pipeline.Evaluate(gate.PhasePreOutput, projection.Empty(), invariant.Candidate{
		Scope: scope,
		Halt:  &h,
	}, frame)
	if shape.Stopped() {
		panic(fmt.Sprintf("engine: halt failed shape gate: %s", shape.Rationale.Code))
	}

	env := record.EventEnvelope{
		EventID:    record.NewEventID(),
		Type:       record.EventHalted,
		OccurredAt: h.HaltedAt,
		Scope:      scope,
		Observer:   &frame,
		Halt:       &h,
	}
	if pos, appendErr := e.log.Append(ctx, env); appendErr != nil {
		e.logger.Warn("halt record could not be appended", "op", op, "code", r.Code, "error", appendErr)
	} else {
		e.cache.Invalidate()
		e.logger.Info("halted", "op", op, "scope", scope.String(), "invariant", r.InvariantID, "code", r.Code, "position", pos)
	}

	stop := outcome.Stop[T](r).WithHints(hints...)
	e.record(op, "halt", scope, outcome.Stop[outcome.Unit](r), 0)

	if e.outbox != nil {
		for _, hint := range stop.Hints {
			if hint.Kind == outcome.HintEscalate {
				if _, obErr := e.outbox.CreateRequest(ctx,
					fmt.Sprintf("halt: %s", r.Code),
					r.Message,
					fmt.Sprintf("op=%s scope=%s invariant=%s halt=%s", op, scope, r.InvariantID, h.ID),
				); obErr != nil {
					e.logger.Warn("escalation outbox failed", "code", r.Code, "error", obErr)
				}
				break
			}
		}
	}

	return stop
}
