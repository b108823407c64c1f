package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/roach88/pantry/internal/engine"
	"github.com/roach88/pantry/internal/ir"
	"github.com/roach88/pantry/internal/store"
	"github.com/roach88/pantry/internal/wire"
)

// Harness is the test execution engine.
// It runs one scenario through the decoder, the engine loop and an
// in-memory journal, then replays the journal.
type Harness struct {
	store   *store.Store
	engine  *engine.Engine
	dialect wire.Dialect
	runID   string
	logger  *slog.Logger
	result  *Result
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory journal and run header
// 2. Decode commands and feed them through engine.Loop
// 3. Record the transcript, trace and final snapshot
// 4. Check expect, final and assertions
// 5. Replay the journal and require it to match
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	dialect, err := wire.ParseDialect(scenario.Dialect)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limits := scenario.limits()
	h := &Harness{
		store:   st,
		engine:  engine.New(limits, engine.WithLogger(logger)),
		dialect: dialect,
		runID:   scenario.runID(),
		logger:  logger,
		result:  NewResult(),
	}
	h.result.RunID = h.runID

	ctx := context.Background()
	if _, err := st.CreateRun(ctx, store.Run{
		ID:             h.runID,
		Period:         limits.Period,
		Capacity:       limits.Capacity,
		Dialect:        string(dialect),
		MaxIngredients: limits.MaxIngredients,
	}); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	if err := h.execute(ctx, scenario.Commands); err != nil {
		return nil, fmt.Errorf("failed to execute commands: %w", err)
	}
	h.result.Final = h.engine.Snapshot()

	h.checkExpect(scenario.Expect)
	h.checkFinal(scenario.Final)
	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions, h.dialect) {
		h.result.AddError(msg)
	}

	v, err := Verify(ctx, st, h.runID, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to replay journal: %w", err)
	}
	for _, d := range v.Divergences {
		h.result.AddError(fmt.Sprintf("replay diverged at tick %d (%s): journaled %s, replayed %s",
			d.Tick, d.What, d.Journaled, d.Replayed))
	}

	return h.result, nil
}

// execute decodes every command up front, then drains them through the loop.
func (h *Harness) execute(ctx context.Context, lines []string) error {
	loop := engine.NewLoop(h.engine)
	for i, line := range lines {
		cmd, err := wire.ParseCommand(line, h.dialect)
		if err != nil {
			return fmt.Errorf("commands[%d]: %w", i, err)
		}
		loop.Enqueue(cmd)
	}
	loop.Close()

	return loop.Run(ctx, engine.Tee(h, h.store.NewRecorder(ctx, h.runID)))
}

// Outcome implements engine.Sink.
func (h *Harness) Outcome(cmd ir.Command, out ir.Outcome) error {
	if out.Dispatch != nil {
		h.result.AddDispatchTrace(out.Dispatch)
	}
	h.result.AddCommandTrace(cmd, out)
	h.result.Output = append(h.result.Output, wire.OutcomeLines(out, h.dialect)...)
	return nil
}

// Finish implements engine.Sink.
func (h *Harness) Finish(d *ir.Dispatch) error {
	if d != nil {
		h.result.AddDispatchTrace(d)
		h.result.Output = append(h.result.Output, wire.DispatchLines(d, h.dialect)...)
	}
	return nil
}

func (h *Harness) checkExpect(expect []string) {
	if expect == nil {
		return
	}
	got := h.result.Output
	for i := 0; i < len(expect) || i < len(got); i++ {
		switch {
		case i >= len(got):
			h.result.AddError(fmt.Sprintf("output line %d: expected %q, output ended", i+1, expect[i]))
			return
		case i >= len(expect):
			h.result.AddError(fmt.Sprintf("output line %d: unexpected %q", i+1, got[i]))
			return
		case expect[i] != got[i]:
			h.result.AddError(fmt.Sprintf("output line %d: expected %q, got %q", i+1, expect[i], got[i]))
			return
		}
	}
}

func (h *Harness) checkFinal(final *FinalState) {
	if final == nil {
		return
	}
	snap := h.result.Final

	if final.Waiting != nil && *final.Waiting != len(snap.Waiting) {
		h.result.AddError(fmt.Sprintf("final waiting: expected %d, got %d", *final.Waiting, len(snap.Waiting)))
	}
	if final.Queued != nil && *final.Queued != len(snap.Queued) {
		h.result.AddError(fmt.Sprintf("final queued: expected %d, got %d", *final.Queued, len(snap.Queued)))
	}
	if final.Stock != nil && !maps.Equal(final.Stock, snap.Stock) {
		h.result.AddError(fmt.Sprintf("final stock: expected %v, got %v", final.Stock, snap.Stock))
	}
	if final.Recipes != nil {
		want := slices.Clone(final.Recipes)
		slices.Sort(want)
		if !slices.Equal(want, snap.Recipes) {
			h.result.AddError(fmt.Sprintf("final recipes: expected %v, got %v", want, snap.Recipes))
		}
	}
}
