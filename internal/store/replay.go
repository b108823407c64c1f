package store

import (
	"context"
	"fmt"
)

// RunState summarises a journaled run for replay and recovery.
type RunState struct {
	Run        Run
	Commands   []CommandRecord
	Dispatches []DispatchRecord

	// NextTick is one past the last journaled command tick, i.e. the tick
	// the engine stood at when the journal stopped.
	NextTick int64

	// IsComplete is true once FinishRun was recorded.
	IsComplete bool

	// Gaps counts missing command ticks below NextTick. A journal written by
	// a single run has none.
	Gaps int
}

// GetRunState reads a run and analyses its completeness.
func (s *Store) GetRunState(ctx context.Context, runID string) (RunState, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return RunState{}, fmt.Errorf("get run state: %w", err)
	}

	commands, dispatches, err := s.ReadRun(ctx, runID)
	if err != nil {
		return RunState{}, fmt.Errorf("get run state: %w", err)
	}

	state := RunState{
		Run:        run,
		Commands:   commands,
		Dispatches: dispatches,
		IsComplete: run.FinalTick != nil,
	}
	if len(commands) > 0 {
		state.NextTick = commands[len(commands)-1].Tick + 1
	}
	state.Gaps = int(state.NextTick) - len(commands)
	return state, nil
}

// FindIncompleteRuns returns runs that never recorded FinishRun, in creation
// order. These are streams that were interrupted mid-way.
func (s *Store) FindIncompleteRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE final_tick IS NULL
		ORDER BY created_seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("find incomplete runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
