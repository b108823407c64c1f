package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pantry/internal/store"
)

const breadStream = `5 100
add_recipe bread flour 10
resupply flour 50 100
order bread 3
order bread 3
order cake 1
remove_recipe bread
resupply flour 10 120
bake
add_recipe bread flour 1
order bread 1
`

const breadTranscript = `added
restocked
accepted
accepted
rejected
2 bread 3
pending orders
restocked
unknown command: bake
ignored
accepted
3 bread 3
`

// runCLI executes the run command with input on stdin. Run ids come from
// ids when journaling.
func runCLI(t *testing.T, input string, ids []string, args ...string) (string, string, error) {
	t.Helper()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	opts := &RunOptions{RootOptions: &RootOptions{Format: "text"}}
	if len(ids) > 0 {
		opts.RunIDGenerator = store.NewFixedGenerator(ids...)
	}
	cmd := newRunCommand(opts)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetIn(strings.NewReader(input))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRunStdin(t *testing.T) {
	out, _, err := runCLI(t, breadStream, nil)
	require.NoError(t, err)
	assert.Equal(t, breadTranscript, out)
}

func TestRunInputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.txt")
	require.NoError(t, os.WriteFile(path, []byte(breadStream), 0644))

	out, _, err := runCLI(t, "", nil, path)
	require.NoError(t, err)
	assert.Equal(t, breadTranscript, out)
}

func TestRunMissingInputFile(t *testing.T) {
	_, _, err := runCLI(t, "", nil, filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open input")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunItalianDialect(t *testing.T) {
	input := `4 1000
aggiungi_ricetta pane farina 100 acqua 50
rifornimento farina 100 2 acqua 100 10
ordine pane 1
cuoci
`
	out, _, err := runCLI(t, input, nil, "--dialect", "it")
	require.NoError(t, err)
	assert.Equal(t, "aggiunta\nrifornito\naccettato\nComando non esistente: cuoci\n2 pane 1\n", out)
}

func TestRunConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "pantry.cue")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`dialect: "it"`+"\n"), 0644))

	out, _, err := runCLI(t, "3 10\ncuoci\n", nil, "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "Comando non esistente: cuoci\n", out)

	// flags win over the file
	out, _, err = runCLI(t, "3 10\nbake\n", nil, "--config", cfgPath, "--dialect", "en")
	require.NoError(t, err)
	assert.Equal(t, "unknown command: bake\n", out)
}

func TestRunInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown dialect", []string{"--dialect", "fr"}},
		{"ingredient cap", []string{"--max-ingredients", "0"}},
		{"missing config file", []string{"--config", filepath.Join(t.TempDir(), "nope.cue")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runCLI(t, breadStream, nil, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to load config")
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Empty(t, out)
		})
	}
}

func TestRunMissingHeader(t *testing.T) {
	_, _, err := runCLI(t, "\n\n", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read header")
	assert.Contains(t, err.Error(), "missing header")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunBadHeader(t *testing.T) {
	_, _, err := runCLI(t, "0 100\n", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "period must be positive")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunMalformedRecord(t *testing.T) {
	input := "1 100\nadd_recipe bread flour 10\norder bread lots\norder bread 1\n"

	out, _, err := runCLI(t, input, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed input")
	assert.Contains(t, err.Error(), "line 3")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	// the record before is still acknowledged, nothing after it runs
	assert.Equal(t, "added\n", out)
}

func TestRunEmptyStream(t *testing.T) {
	out, _, err := runCLI(t, "5 100\n", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunJournal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pantry.db")

	out, _, err := runCLI(t, breadStream, []string{"run-1"}, "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, breadTranscript, out)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	state, err := st.GetRunState(context.Background(), "run-1")
	require.NoError(t, err)
	assert.True(t, state.IsComplete)
	assert.Len(t, state.Commands, 10)
	assert.Len(t, state.Dispatches, 2)
	assert.Equal(t, int64(5), state.Run.Period)
	assert.Equal(t, int64(100), state.Run.Capacity)
	assert.Equal(t, "en", state.Run.Dialect)
	assert.Equal(t, 10, state.Run.MaxIngredients)
}

func TestRunJournalMalformedLeavesRunIncomplete(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pantry.db")

	_, _, err := runCLI(t, "1 100\nadd_recipe bread flour 10\norder bread\n", []string{"run-1"}, "--db", dbPath)
	require.Error(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	state, err := st.GetRunState(context.Background(), "run-1")
	require.NoError(t, err)
	assert.False(t, state.IsComplete)
	assert.Len(t, state.Commands, 1)
	assert.Empty(t, state.Dispatches)
}

func TestRunVerboseLogsToStderr(t *testing.T) {
	out, logs, err := runCLI(t, breadStream, nil, "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, breadTranscript, out)
	assert.Empty(t, logs)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := newRunCommand(&RunOptions{RootOptions: &RootOptions{Format: "text", Verbose: true}})
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetIn(strings.NewReader(breadStream))
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, breadTranscript, stdout.String())
	assert.Contains(t, stderr.String(), "level=DEBUG")
	assert.Contains(t, stderr.String(), "run finished")
}

func TestRunHelpText(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Process a pantry record stream")
	assert.Contains(t, output, "--db")
	assert.Contains(t, output, "--dialect")
	assert.Contains(t, output, "input-file")
}
