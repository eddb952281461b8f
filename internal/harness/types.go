package harness

import (
	"fmt"

	"github.com/tmalloy/augur/internal/engine"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step expectation and final assertion held.
	Pass bool `json:"pass"`

	// Trace is the engine's trace in emission order; the golden files
	// snapshot it.
	Trace []engine.TraceEvent `json:"trace"`

	// Errors lists every expectation or assertion that failed. Empty
	// when Pass is true.
	Errors []string `json:"errors,omitempty"`

	// EventCount is the number of events in the final log.
	EventCount int `json:"event_count"`

	// CurrentExists reports whether the scenario scope ended with a
	// current prediction.
	CurrentExists bool `json:"current_exists"`
}

// NewResult creates a passing result to accumulate into.
func NewResult() *Result {
	return &Result{Pass: true, Trace: []engine.TraceEvent{}, Errors: []string{}}
}

// AddError records a failure and flips Pass.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}
