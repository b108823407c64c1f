package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pantry/internal/config"
	"github.com/roach88/pantry/internal/harness"
	"github.com/roach88/pantry/internal/store"
)

// ReplayOptions are the replay command's flags.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // empty replays every run
}

// ReplayResult is the verdict on every replayed run.
type ReplayResult struct {
	Runs             []*harness.Verification `json:"runs"`
	TotalRuns        int                     `json:"total_runs"`
	AllDeterministic bool                    `json:"all_deterministic"`
}

// NewReplayCommand builds "pantry replay".
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay journaled runs and verify determinism",
		Long: `Re-execute journaled runs and compare them with the journal.

Each run is rebuilt from its recorded header; every journaled command is
applied to a fresh engine and the resulting acknowledgements and courier
reports are compared with the journal. Interrupted runs are verified up to
their last journaled command.

Exit codes:
  0 - All runs are deterministic
  1 - A run diverged from its journal
  2 - Command error (journal or run not found, etc.)

Examples:
  pantry replay --db ./pantry.db
  pantry replay --db ./pantry.db --run 0190f6b2-...
  pantry replay --db ./pantry.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	logger := newLogger(cmd.ErrOrStderr(), config.Default(), opts.Verbose)

	st, err := openExistingJournal(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	runIDs, err := selectRuns(ctx, st, opts.RunID)
	if err != nil {
		return err
	}

	result := ReplayResult{
		Runs:             make([]*harness.Verification, 0, len(runIDs)),
		TotalRuns:        len(runIDs),
		AllDeterministic: true,
	}
	if len(runIDs) == 0 && opts.Format != "json" {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found in journal.")
		return nil
	}

	for _, id := range runIDs {
		v, err := harness.Verify(ctx, st, id, logger)
		if errors.Is(err, store.ErrRunNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", id))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", id), err)
		}
		result.Runs = append(result.Runs, v)
		result.AllDeterministic = result.AllDeterministic && v.Deterministic()
	}

	if opts.Format == "json" {
		err = outputReplayJSON(cmd, result)
	} else {
		outputReplayText(cmd, result, opts.Verbose)
	}
	if err != nil {
		return err
	}
	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// selectRuns returns id alone, or every journaled run when id is empty.
func selectRuns(ctx context.Context, st *store.Store, id string) ([]string, error) {
	if id != "" {
		return []string{id}, nil
	}
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids, nil
}

func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if len(result.Runs) == 1 {
		response.RunID = result.Runs[0].RunID
	}
	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDeterminism,
			Message: "determinism verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Replay Summary: %d run(s)\n\n", result.TotalRuns)

	for _, run := range result.Runs {
		mark := "✓"
		if !run.Deterministic() {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s Run: %s\n", mark, run.RunID)

		if verbose {
			fmt.Fprintf(w, "  Commands: %d\n  Dispatches: %d\n  Complete: %v\n",
				run.Commands, run.Dispatches, run.Complete)
		} else {
			fmt.Fprintf(w, "  Events: %d commands, %d dispatches\n", run.Commands, run.Dispatches)
		}
		if !run.Complete {
			fmt.Fprintln(w, "  Note: run was interrupted")
		}
		for _, d := range run.Divergences {
			fmt.Fprintf(w, "  tick %d %s: journaled %s, replayed %s\n", d.Tick, d.What, d.Journaled, d.Replayed)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
	} else {
		fmt.Fprintln(w, "✗ Determinism verification failed")
	}
}
