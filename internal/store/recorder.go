package store

import (
	"context"

	"github.com/roach88/pantry/internal/ir"
)

// Recorder journals a run as it is processed. It satisfies engine.Sink and
// is usually teed with the text renderer.
type Recorder struct {
	store *Store
	ctx   context.Context
	runID string
	ticks int64
}

// NewRecorder creates a recorder for an existing run.
func (s *Store) NewRecorder(ctx context.Context, runID string) *Recorder {
	return &Recorder{store: s, ctx: ctx, runID: runID}
}

// Outcome journals the dispatch that fired before the command, if any, then
// the command.
func (r *Recorder) Outcome(cmd ir.Command, out ir.Outcome) error {
	if out.Dispatch != nil {
		if _, err := r.store.WriteDispatch(r.ctx, r.runID, out.Dispatch); err != nil {
			return err
		}
	}
	if _, err := r.store.WriteCommand(r.ctx, r.runID, out.Tick, cmd, out.Ack, out.Token); err != nil {
		return err
	}
	r.ticks = out.Tick + 1
	return nil
}

// Finish journals the trailing dispatch and marks the run complete.
func (r *Recorder) Finish(d *ir.Dispatch) error {
	if d != nil {
		if _, err := r.store.WriteDispatch(r.ctx, r.runID, d); err != nil {
			return err
		}
	}
	return r.store.FinishRun(r.ctx, r.runID, r.ticks)
}
