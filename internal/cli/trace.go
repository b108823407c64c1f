package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/pantry/internal/ir"
	"github.com/roach88/pantry/internal/store"
	"github.com/roach88/pantry/internal/wire"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database   string
	RunID      string // "latest" selects the most recent run
	Kind       string // optional - filter to one command kind
	Incomplete bool   // list interrupted runs only
}

// TraceEvent represents a single event in the trace timeline.
type TraceEvent struct {
	Tick     int64           `json:"tick"`
	Type     string          `json:"type"` // "command" or "dispatch"
	ID       string          `json:"id"`
	Kind     ir.Kind         `json:"kind,omitempty"`
	Keyword  string          `json:"keyword,omitempty"` // as written in the run's dialect
	Ack      ir.Ack          `json:"ack,omitempty"`
	Token    string          `json:"token,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Dispatch *ir.Dispatch    `json:"dispatch,omitempty"`
	Lines    []string        `json:"lines"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run      store.Run    `json:"run"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int   `json:"total_events"`
	Commands    int   `json:"commands"`
	Dispatches  int   `json:"dispatches"`
	Shipments   int   `json:"shipments"`
	Shipped     int64 `json:"shipped_weight"`
	IsComplete  bool  `json:"is_complete"`
	Gaps        int   `json:"gaps"`
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	store.Run
	Complete bool `json:"complete"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the journal of a run",
		Long: `Show what a journaled run did.

Without --run, lists the runs in the journal. With --run (an id, or
"latest"), prints the run's timeline: every command with its
acknowledgement and every courier report, in tick order, exactly as the
run printed them.

The output includes:
- Timeline: Chronological list of commands and dispatches
- Stats: Summary statistics for the run

Examples:
  pantry trace --db ./pantry.db
  pantry trace --db ./pantry.db --incomplete
  pantry trace --db ./pantry.db --run latest
  pantry trace --db ./pantry.db --run 0190f6b2-...
  pantry trace --db ./pantry.db --run 0190f6b2-... --kind order
  pantry trace --db ./pantry.db --run 0190f6b2-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to trace, or \"latest\" (default: list runs)")
	cmd.Flags().BoolVar(&opts.Incomplete, "incomplete", false, "list only interrupted runs")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one command kind (add_recipe|remove_recipe|resupply|order|unknown)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openExistingJournal(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.RunID == "" {
		return listRuns(ctx, st, opts, cmd)
	}

	runID := opts.RunID
	if runID == "latest" {
		latest, err := st.LatestRun(ctx)
		if errors.Is(err, store.ErrRunNotFound) {
			return NewExitError(ExitCommandError, "journal has no runs")
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find latest run", err)
		}
		runID = latest.ID
	}

	state, err := st.GetRunState(ctx, runID)
	if errors.Is(err, store.ErrRunNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", runID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to get run state", err)
	}

	dialect, err := wire.ParseDialect(state.Run.Dialect)
	if err != nil {
		return WrapExitError(ExitCommandError, "journaled run has an invalid dialect", err)
	}

	timeline, err := buildTimeline(state, dialect, ir.Kind(opts.Kind))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build timeline", err)
	}

	result := TraceResult{
		Run:      state.Run,
		Timeline: timeline,
		Stats: TraceStats{
			TotalEvents: len(timeline),
			Commands:    len(state.Commands),
			Dispatches:  len(state.Dispatches),
			IsComplete:  state.IsComplete,
			Gaps:        state.Gaps,
		},
	}
	for _, d := range state.Dispatches {
		result.Stats.Shipments += len(d.Dispatch.Shipments)
		result.Stats.Shipped += d.Dispatch.Load
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

// openExistingJournal opens path, refusing to create a new journal.
func openExistingJournal(path string) (*store.Store, error) {
	if !fileExists(path) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return st, nil
}

func listRuns(ctx context.Context, st *store.Store, opts *TraceOptions, cmd *cobra.Command) error {
	list := st.ListRuns
	if opts.Incomplete {
		list = st.FindIncompleteRuns
	}
	runs, err := list(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, r := range runs {
		summaries = append(summaries, RunSummary{Run: r, Complete: r.FinalTick != nil})
	}

	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: "ok", Data: summaries})
	}

	w := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs found in journal.")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%s  period=%d capacity=%d dialect=%s  %s\n",
			s.ID, s.Period, s.Capacity, s.Dialect, completeStatus(s.Complete))
	}
	return nil
}

// buildTimeline merges commands and dispatches in output order. A dispatch
// fires before the command of its tick; the trailing dispatch sorts last.
// When kindFilter is set, only commands of that kind are included.
func buildTimeline(state store.RunState, dialect wire.Dialect, kindFilter ir.Kind) ([]TraceEvent, error) {
	timeline := []TraceEvent{}

	if kindFilter == "" {
		for _, d := range state.Dispatches {
			timeline = append(timeline, TraceEvent{
				Tick:     d.Tick,
				Type:     "dispatch",
				ID:       d.ID,
				Dispatch: d.Dispatch,
				Lines:    wire.DispatchLines(d.Dispatch, dialect),
			})
		}
	}

	for _, c := range state.Commands {
		if kindFilter != "" && c.Command.Kind() != kindFilter {
			continue
		}
		payload, err := ir.MarshalCommand(c.Command)
		if err != nil {
			return nil, fmt.Errorf("marshal command at tick %d: %w", c.Tick, err)
		}
		timeline = append(timeline, TraceEvent{
			Tick:    c.Tick,
			Type:    "command",
			ID:      c.ID,
			Kind:    c.Command.Kind(),
			Keyword: keyword(dialect, c.Command.Kind()),
			Ack:     c.Ack,
			Token:   c.Token,
			Payload: payload,
			Lines:   []string{dialect.AckText(c.Ack, c.Token)},
		})
	}

	sort.SliceStable(timeline, func(i, j int) bool {
		if timeline[i].Tick != timeline[j].Tick {
			return timeline[i].Tick < timeline[j].Tick
		}
		return timeline[i].Type == "dispatch" && timeline[j].Type != "dispatch"
	})
	return timeline, nil
}

// keyword names kind in dialect. Unknown commands have no keyword and keep
// their kind.
func keyword(dialect wire.Dialect, kind ir.Kind) string {
	if kw := dialect.Keyword(kind); kw != "" {
		return kw
	}
	return string(kind)
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status: "ok",
		RunID:  result.Run.ID,
		Data:   result,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for Run: %s\n", result.Run.ID)
	fmt.Fprintf(w, "Header: period=%d capacity=%d dialect=%s\n", result.Run.Period, result.Run.Capacity, result.Run.Dialect)
	fmt.Fprintf(w, "Status: %s\n", completeStatus(result.Stats.IsComplete))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	} else {
		for _, event := range result.Timeline {
			formatTimelineEvent(w, event, verbose)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Commands:     %d\n", result.Stats.Commands)
	fmt.Fprintf(w, "  Dispatches:   %d\n", result.Stats.Dispatches)
	fmt.Fprintf(w, "  Shipments:    %d\n", result.Stats.Shipments)
	fmt.Fprintf(w, "  Shipped:      %d\n", result.Stats.Shipped)
	if result.Stats.Gaps > 0 {
		fmt.Fprintf(w, "  Gaps:         %d (journal is missing command ticks)\n", result.Stats.Gaps)
	}

	return nil
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, event TraceEvent, verbose bool) {
	switch event.Type {
	case "command":
		fmt.Fprintf(w, "  [%d] %s -> %s\n", event.Tick, event.Keyword, event.Lines[0])
		if verbose {
			fmt.Fprintf(w, "       Payload: %s\n", event.Payload)
			fmt.Fprintf(w, "       ID: %s\n", truncateID(event.ID))
		}

	case "dispatch":
		fmt.Fprintf(w, "  [%d] DISPATCH load=%d\n", event.Tick, event.Dispatch.Load)
		for _, line := range event.Lines {
			fmt.Fprintf(w, "       %s\n", line)
		}
		if verbose {
			fmt.Fprintf(w, "       ID: %s\n", truncateID(event.ID))
		}
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}

// completeStatus returns a human-readable completion status.
func completeStatus(isComplete bool) string {
	if isComplete {
		return "Complete"
	}
	return "Incomplete (interrupted)"
}
