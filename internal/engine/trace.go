package engine

import "sync"

// TraceEvent is one observation point in an orchestrator invocation:
// a gate verdict, an append, a halt. Traces exist for the conformance
// harness and for humans reading a run; nothing in the engine consults
// them.
type TraceEvent struct {
	Step        int64  `json:"step"` // logical clock, strictly increasing
	Op          string `json:"op"`   // "ensure", "act", "resolve", "note"
	Stage       string `json:"stage"`
	Scope       string `json:"scope,omitempty"`
	Flow        string `json:"flow,omitempty"`
	Code        string `json:"code,omitempty"`
	InvariantID string `json:"invariant_id,omitempty"`
	Position    int64  `json:"position,omitempty"` // log position, when the stage appended
}

// TraceSink receives trace events in emission order.
type TraceSink interface {
	Record(TraceEvent)
}

// TraceCollector is a TraceSink that accumulates events in memory.
type TraceCollector struct {
	mu     sync.Mutex
	events []TraceEvent
}

// NewTraceCollector returns an empty collector.
func NewTraceCollector() *TraceCollector {
	return &TraceCollector{}
}

// Record implements TraceSink.
func (t *TraceCollector) Record(ev TraceEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, ev)
}

// Events returns a copy of the collected events in emission order.
func (t *TraceCollector) Events() []TraceEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TraceEvent, len(t.events))
	copy(out, t.events)
	return out
}

// Reset clears the collector.
func (t *TraceCollector) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}
