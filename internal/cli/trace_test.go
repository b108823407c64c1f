package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pantry/internal/ir"
	"github.com/roach88/pantry/internal/store"
	"github.com/roach88/pantry/internal/wire"
)

func traceCLI(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func TestTraceMissingDatabaseFlag(t *testing.T) {
	_, err := traceCLI(t, &RootOptions{Format: "text"}, "--run", "run-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTraceNonExistentDatabase(t *testing.T) {
	_, err := traceCLI(t, &RootOptions{Format: "text"}, "--db", filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTraceListRuns(t *testing.T) {
	dbPath := journalBread(t, "run-1")
	_, _, err := runCLI(t, "3 10\nbake\norder\n", []string{"run-2"}, "--db", dbPath)
	require.Error(t, err)

	out, err := traceCLI(t, &RootOptions{Format: "text"}, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "run-1  period=5 capacity=100 dialect=en  Complete")
	assert.Contains(t, out, "run-2  period=3 capacity=10 dialect=en  Incomplete (interrupted)")
}

func TestTraceListIncompleteRuns(t *testing.T) {
	dbPath := journalBread(t, "run-1")
	_, _, err := runCLI(t, "3 10\nbake\norder\n", []string{"run-2"}, "--db", dbPath)
	require.Error(t, err)

	out, err := traceCLI(t, &RootOptions{Format: "text"}, "--db", dbPath, "--incomplete")
	require.NoError(t, err)
	assert.Contains(t, out, "run-2")
	assert.NotContains(t, out, "run-1")
}

func TestTraceLatestRun(t *testing.T) {
	dbPath := journalBread(t, "run-1", "run-2")

	out, err := traceCLI(t, &RootOptions{Format: "text"}, "--db", dbPath, "--run", "latest")
	require.NoError(t, err)
	assert.Contains(t, out, "Trace for Run: run-2")
}

func TestTraceLatestRunEmptyJournal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pantry.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = traceCLI(t, &RootOptions{Format: "text"}, "--db", dbPath, "--run", "latest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal has no runs")
}

func TestTraceListRunsJSON(t *testing.T) {
	dbPath := journalBread(t, "run-1", "run-2")

	out, err := traceCLI(t, &RootOptions{Format: "json"}, "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   []RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "run-1", resp.Data[0].ID)
	assert.Equal(t, "run-2", resp.Data[1].ID)
	assert.True(t, resp.Data[0].Complete)
}

func TestTraceRunText(t *testing.T) {
	dbPath := journalBread(t, "run-1")

	out, err := traceCLI(t, &RootOptions{Format: "text"}, "--db", dbPath, "--run", "run-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Trace for Run: run-1")
	assert.Contains(t, out, "Header: period=5 capacity=100 dialect=en")
	assert.Contains(t, out, "Status: Complete")
	assert.Contains(t, out, "[0] add_recipe -> added")
	assert.Contains(t, out, "[5] DISPATCH load=30\n       2 bread 3\n  [5] remove_recipe -> pending orders")
	assert.Contains(t, out, "[7] unknown -> unknown command: bake")
	assert.Contains(t, out, "[10] DISPATCH load=30\n       3 bread 3")
	assert.Contains(t, out, "Total Events: 12")
	assert.Contains(t, out, "Shipments:    2")
	assert.Contains(t, out, "Shipped:      60")
	assert.NotContains(t, out, "Gaps:")
}

func TestTraceReportsGaps(t *testing.T) {
	dbPath := journalBread(t, "run-1")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(context.Background(),
		"DELETE FROM commands WHERE run_id = ? AND tick = ?", "run-1", 3)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := traceCLI(t, &RootOptions{Format: "json"}, "--db", dbPath, "--run", "run-1")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1, resp.Data.Stats.Gaps)
	assert.Equal(t, 9, resp.Data.Stats.Commands)

	out, err = traceCLI(t, &RootOptions{Format: "text"}, "--db", dbPath, "--run", "run-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Gaps:         1 (journal is missing command ticks)")
}

func TestTraceRunVerbose(t *testing.T) {
	dbPath := journalBread(t, "run-1")

	out, err := traceCLI(t, &RootOptions{Format: "text", Verbose: true}, "--db", dbPath, "--run", "run-1")
	require.NoError(t, err)
	assert.Contains(t, out, `Payload: {"ingredients":[{"name":"flour","quantity":10}],"name":"bread"}`)
	assert.Contains(t, out, "ID: ")
}

func TestTraceRunJSON(t *testing.T) {
	dbPath := journalBread(t, "run-1")

	out, err := traceCLI(t, &RootOptions{Format: "json"}, "--db", dbPath, "--run", "run-1")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		RunID  string      `json:"run_id"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.RunID)
	assert.True(t, resp.Data.Stats.IsComplete)
	assert.Equal(t, 10, resp.Data.Stats.Commands)
	assert.Equal(t, 2, resp.Data.Stats.Dispatches)
	require.Len(t, resp.Data.Timeline, 12)

	last := resp.Data.Timeline[11]
	assert.Equal(t, "dispatch", last.Type)
	assert.Equal(t, int64(10), last.Tick)
	assert.Equal(t, []string{"3 bread 3"}, last.Lines)
}

func TestTraceKindFilter(t *testing.T) {
	dbPath := journalBread(t, "run-1")

	out, err := traceCLI(t, &RootOptions{Format: "json"}, "--db", dbPath, "--run", "run-1", "--kind", "order")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Timeline, 4)
	for _, e := range resp.Data.Timeline {
		assert.Equal(t, "command", e.Type)
		assert.Equal(t, ir.KindOrder, e.Kind)
	}
	assert.Equal(t, ir.AckRejected, resp.Data.Timeline[2].Ack)
}

func TestTraceUnknownRun(t *testing.T) {
	dbPath := journalBread(t, "run-1")

	_, err := traceCLI(t, &RootOptions{Format: "text"}, "--db", dbPath, "--run", "run-9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found: run-9")
}

func TestBuildTimeline_DispatchBeforeCommand(t *testing.T) {
	state := store.RunState{
		Commands: []store.CommandRecord{
			{ID: "c0", Tick: 0, Command: ir.AddRecipe{Name: "bread"}, Ack: ir.AckAdded},
			{ID: "c1", Tick: 1, Command: ir.Unknown{Token: "bake"}, Ack: ir.AckUnrecognized, Token: "bake"},
		},
		Dispatches: []store.DispatchRecord{
			{ID: "d1", Tick: 1, Dispatch: &ir.Dispatch{Tick: 1}},
		},
	}

	timeline, err := buildTimeline(state, wire.Italian, "")
	require.NoError(t, err)
	require.Len(t, timeline, 3)
	assert.Equal(t, "c0", timeline[0].ID)
	assert.Equal(t, "d1", timeline[1].ID)
	assert.Equal(t, []string{"camioncino vuoto"}, timeline[1].Lines)
	assert.Equal(t, []string{"Comando non esistente: bake"}, timeline[2].Lines)

	assert.Equal(t, "aggiungi_ricetta", timeline[0].Keyword)
	assert.Equal(t, "unknown", timeline[2].Keyword)
	assert.Empty(t, timeline[1].Keyword)
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "01234567...89abcdef", truncateID("0123456789abcdef0123456789abcdef"))
}
