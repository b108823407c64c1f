package harness

import (
	"github.com/roach88/pantry/internal/engine"
	"github.com/roach88/pantry/internal/ir"
)

// Trace event types.
const (
	EventCommand  = "command"
	EventDispatch = "dispatch"
)

// TraceEvent is one command acknowledgement or one courier dispatch.
type TraceEvent struct {
	Type string `json:"type"`
	Tick int64  `json:"tick"`

	// Command events.
	Kind  ir.Kind `json:"kind,omitempty"`
	Ack   ir.Ack  `json:"ack,omitempty"`
	Token string  `json:"token,omitempty"`

	// Dispatch events.
	Dispatch *ir.Dispatch `json:"dispatch,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the transcript, final state and all assertions match.
	Pass bool `json:"pass"`

	// RunID is the journal id the scenario ran under.
	RunID string `json:"run_id"`

	// Output is the printed transcript, one line per entry.
	Output []string `json:"output"`

	// Trace contains all acknowledgements and dispatches in tick order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the engine state after the trailing dispatch.
	Final engine.Snapshot `json:"final"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Output: []string{},
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddCommandTrace adds an acknowledgement to the trace.
func (r *Result) AddCommandTrace(cmd ir.Command, out ir.Outcome) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:  EventCommand,
		Tick:  out.Tick,
		Kind:  cmd.Kind(),
		Ack:   out.Ack,
		Token: out.Token,
	})
}

// AddDispatchTrace adds a courier dispatch to the trace.
func (r *Result) AddDispatchTrace(d *ir.Dispatch) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:     EventDispatch,
		Tick:     d.Tick,
		Dispatch: d,
	})
}
