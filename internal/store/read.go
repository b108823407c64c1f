package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/pantry/internal/ir"
)

const runColumns = `id, period, capacity, dialect, max_ingredients, engine_version, ir_version, created_seq, final_tick`

// GetRun returns the header of one run, or ErrRunNotFound.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// LatestRun returns the most recently created run, or ErrRunNotFound if the
// journal is empty.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY created_seq DESC, id COLLATE BINARY DESC
		LIMIT 1
	`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// ListRuns returns every run in creation order.
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY created_seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
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

// ReadRun returns the commands and dispatches of a run.
// Results are ordered deterministically: ORDER BY tick ASC, id ASC COLLATE BINARY.
//
// Returns empty slices (not nil) if the run recorded nothing.
func (s *Store) ReadRun(ctx context.Context, runID string) ([]CommandRecord, []DispatchRecord, error) {
	commands, err := s.readCommands(ctx, runID)
	if err != nil {
		return nil, nil, err
	}

	dispatches, err := s.readDispatches(ctx, runID)
	if err != nil {
		return nil, nil, err
	}

	return commands, dispatches, nil
}

func (s *Store) readCommands(ctx context.Context, runID string) ([]CommandRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, tick, kind, payload, ack, token
		FROM commands
		WHERE run_id = ?
		ORDER BY tick ASC, id COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer rows.Close()

	commands := []CommandRecord{}
	for rows.Next() {
		rec, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		commands = append(commands, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commands: %w", err)
	}
	return commands, nil
}

func (s *Store) readDispatches(ctx context.Context, runID string) ([]DispatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, tick, report
		FROM dispatches
		WHERE run_id = ?
		ORDER BY tick ASC, id COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	defer rows.Close()

	dispatches := []DispatchRecord{}
	for rows.Next() {
		var (
			rec    DispatchRecord
			report string
		)
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Tick, &report); err != nil {
			return nil, fmt.Errorf("scan dispatch: %w", err)
		}
		rec.Dispatch, err = ir.UnmarshalDispatch([]byte(report))
		if err != nil {
			return nil, fmt.Errorf("decode dispatch %s: %w", rec.ID, err)
		}
		dispatches = append(dispatches, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatches: %w", err)
	}
	return dispatches, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run       Run
		finalTick sql.NullInt64
	)
	err := row.Scan(
		&run.ID,
		&run.Period,
		&run.Capacity,
		&run.Dialect,
		&run.MaxIngredients,
		&run.EngineVersion,
		&run.IRVersion,
		&run.CreatedSeq,
		&finalTick,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if finalTick.Valid {
		v := finalTick.Int64
		run.FinalTick = &v
	}
	return run, nil
}

func scanCommand(row rowScanner) (CommandRecord, error) {
	var (
		rec     CommandRecord
		kind    string
		payload string
		ack     string
	)
	if err := row.Scan(&rec.ID, &rec.RunID, &rec.Tick, &kind, &payload, &ack, &rec.Token); err != nil {
		return CommandRecord{}, fmt.Errorf("scan command: %w", err)
	}

	cmd, err := ir.UnmarshalCommand(ir.Kind(kind), []byte(payload))
	if err != nil {
		return CommandRecord{}, fmt.Errorf("decode command %s: %w", rec.ID, err)
	}
	rec.Command = cmd
	rec.Ack = ir.Ack(ack)
	return rec, nil
}
