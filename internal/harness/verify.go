package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/pantry/internal/engine"
	"github.com/roach88/pantry/internal/ir"
	"github.com/roach88/pantry/internal/store"
)

// Divergence is one point where a replay disagreed with the journal.
type Divergence struct {
	Tick int64 `json:"tick"`

	// What is "tick", "ack", "dispatch" or "final".
	What      string `json:"what"`
	Journaled string `json:"journaled"`
	Replayed  string `json:"replayed"`
}

// Verification is the result of replaying one journaled run.
type Verification struct {
	RunID       string       `json:"run_id"`
	Commands    int          `json:"commands"`
	Dispatches  int          `json:"dispatches"`
	Complete    bool         `json:"complete"`
	Divergences []Divergence `json:"divergences"`
}

// Deterministic reports whether the replay matched the journal exactly.
func (v *Verification) Deterministic() bool {
	return len(v.Divergences) == 0
}

func (v *Verification) diverge(tick int64, what, journaled, replayed string) {
	v.Divergences = append(v.Divergences, Divergence{
		Tick:      tick,
		What:      what,
		Journaled: journaled,
		Replayed:  replayed,
	})
}

// Verify rebuilds an engine from a run's recorded header, reapplies every
// journaled command and compares acknowledgements and dispatch reports.
//
// An interrupted run (no final tick) is verified up to its last command.
// A dispatch journaled at or after that point is ignored, since the stream
// may have stopped between writing it and writing its command.
func Verify(ctx context.Context, st *store.Store, runID string, logger *slog.Logger) (*Verification, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	state, err := st.GetRunState(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("verify run %s: %w", runID, err)
	}

	v := &Verification{
		RunID:       runID,
		Commands:    len(state.Commands),
		Dispatches:  len(state.Dispatches),
		Complete:    state.IsComplete,
		Divergences: []Divergence{},
	}

	journaled := make(map[int64]*ir.Dispatch, len(state.Dispatches))
	for _, rec := range state.Dispatches {
		journaled[rec.Tick] = rec.Dispatch
	}
	seen := make(map[int64]bool, len(state.Dispatches))

	compare := func(tick int64, replayed *ir.Dispatch) error {
		want, ok := journaled[tick]
		if replayed == nil && !ok {
			return nil
		}
		seen[tick] = true
		wantText, err := describeDispatch(want)
		if err != nil {
			return err
		}
		gotText, err := describeDispatch(replayed)
		if err != nil {
			return err
		}
		if wantText != gotText {
			v.diverge(tick, "dispatch", wantText, gotText)
		}
		return nil
	}

	e := engine.New(engine.Limits{
		Period:         state.Run.Period,
		Capacity:       state.Run.Capacity,
		MaxIngredients: state.Run.MaxIngredients,
	}, engine.WithLogger(logger))

	for _, rec := range state.Commands {
		out := e.Apply(rec.Command)
		if out.Tick != rec.Tick {
			// Every later tick is shifted; comparing further is noise.
			v.diverge(rec.Tick, "tick", fmt.Sprint(rec.Tick), fmt.Sprint(out.Tick))
			return v, nil
		}
		if out.Ack != rec.Ack || out.Token != rec.Token {
			v.diverge(rec.Tick, "ack", describeAck(rec.Ack, rec.Token), describeAck(out.Ack, out.Token))
		}
		if err := compare(out.Tick, out.Dispatch); err != nil {
			return nil, fmt.Errorf("verify run %s: %w", runID, err)
		}
	}

	if state.IsComplete {
		final := e.Finish()
		if *state.Run.FinalTick != e.Tick() {
			v.diverge(e.Tick(), "final", fmt.Sprint(*state.Run.FinalTick), fmt.Sprint(e.Tick()))
		}
		if err := compare(e.Tick(), final); err != nil {
			return nil, fmt.Errorf("verify run %s: %w", runID, err)
		}
	}

	for _, rec := range state.Dispatches {
		if seen[rec.Tick] {
			continue
		}
		if !state.IsComplete && rec.Tick >= state.NextTick {
			continue
		}
		text, err := describeDispatch(rec.Dispatch)
		if err != nil {
			return nil, fmt.Errorf("verify run %s: %w", runID, err)
		}
		v.diverge(rec.Tick, "dispatch", text, "none")
	}

	logger.Debug("run verified",
		"run", runID,
		"commands", v.Commands,
		"dispatches", v.Dispatches,
		"divergences", len(v.Divergences),
	)
	return v, nil
}

func describeAck(ack ir.Ack, token string) string {
	if token != "" {
		return fmt.Sprintf("%s %s", ack, token)
	}
	return string(ack)
}

func describeDispatch(d *ir.Dispatch) (string, error) {
	if d == nil {
		return "none", nil
	}
	data, err := ir.MarshalDispatch(d)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
