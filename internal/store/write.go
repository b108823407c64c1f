package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/pantry/internal/ir"
)

// CreateRun inserts a run header and returns it with CreatedSeq assigned.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: creating an existing run
// returns the stored row unchanged.
func (s *Store) CreateRun(ctx context.Context, run Run) (Run, error) {
	if run.EngineVersion == "" {
		run.EngineVersion = ir.EngineVersion
	}
	if run.IRVersion == "" {
		run.IRVersion = ir.IRVersion
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs
			(id, period, capacity, dialect, max_ingredients, engine_version, ir_version, created_seq)
			VALUES (?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(created_seq), 0) + 1 FROM runs))
			ON CONFLICT(id) DO NOTHING
		`,
			run.ID,
			run.Period,
			run.Capacity,
			run.Dialect,
			run.MaxIngredients,
			run.EngineVersion,
			run.IRVersion,
		)
		return err
	})
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}

	return s.GetRun(ctx, run.ID)
}

// FinishRun records the tick after the last command. Only the first call
// for a run takes effect.
func (s *Store) FinishRun(ctx context.Context, runID string, finalTick int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET final_tick = ?
		WHERE id = ? AND final_tick IS NULL
	`, finalTick, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := s.GetRun(ctx, runID); err != nil {
			return fmt.Errorf("finish run: %w", err)
		}
	}
	return nil
}

// WriteCommand journals one applied command.
// The id is content-addressed over (run, tick, kind, payload), so writing the
// same command twice is silently ignored.
//
// Note: The run referenced by runID must exist (foreign key constraint).
func (s *Store) WriteCommand(ctx context.Context, runID string, tick int64, cmd ir.Command, ack ir.Ack, token string) (string, error) {
	payload, err := ir.MarshalCommand(cmd)
	if err != nil {
		return "", fmt.Errorf("write command: %w", err)
	}

	id, err := ir.CommandID(runID, tick, cmd.Kind(), payload)
	if err != nil {
		return "", fmt.Errorf("write command: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO commands
		(id, run_id, tick, kind, payload, ack, token)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		id,
		runID,
		tick,
		string(cmd.Kind()),
		string(payload),
		string(ack),
		token,
	)
	if err != nil {
		return "", fmt.Errorf("write command: %w", err)
	}

	return id, nil
}

// WriteDispatch journals one courier report.
// Each run has at most one dispatch per tick (UNIQUE(run_id, tick)); a second
// write for the same tick is silently ignored.
func (s *Store) WriteDispatch(ctx context.Context, runID string, d *ir.Dispatch) (string, error) {
	report, err := ir.MarshalDispatch(d)
	if err != nil {
		return "", fmt.Errorf("write dispatch: %w", err)
	}

	id, err := ir.DispatchID(runID, d.Tick, report)
	if err != nil {
		return "", fmt.Errorf("write dispatch: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dispatches
		(id, run_id, tick, report)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		id,
		runID,
		d.Tick,
		string(report),
	)
	if err != nil {
		return "", fmt.Errorf("write dispatch: %w", err)
	}

	return id, nil
}
