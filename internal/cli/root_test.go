package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "pantry", cmd.Use)
	assert.Contains(t, cmd.Short, "Pantry")
	assert.Contains(t, cmd.Long, "courier reports")
	assert.Contains(t, cmd.Long, "replayed to verify determinism")

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestSubcommandFlags(t *testing.T) {
	// flag name -> default value
	tests := map[string]map[string]string{
		"run": {
			// unset flags leave pantry.cue values alone
			"config":          "",
			"dialect":         "",
			"log-level":       "",
			"db":              "",
			"max-ingredients": "0",
		},
		"replay":   {"db": "", "run": ""},
		"trace":    {"db": "", "run": "", "kind": "", "incomplete": "false"},
		"validate": {"dialect": "en"},
		"test":     {"update": "false", "filter": "", "golden": ""},
	}

	root := NewRootCommand()
	for name, flags := range tests {
		t.Run(name, func(t *testing.T) {
			sub, _, err := root.Find([]string{name})
			require.NoError(t, err)
			require.Equal(t, name, sub.Name())

			for flag, def := range flags {
				f := sub.Flags().Lookup(flag)
				require.NotNil(t, f, "--%s", flag)
				assert.Equal(t, def, f.DefValue, "--%s", flag)
			}
		})
	}
}

func TestFormatValidation(t *testing.T) {
	for _, f := range []string{"text", "json"} {
		assert.True(t, isValidFormat(f), f)
	}
	for _, f := range []string{"xml", "", "TEXT"} {
		assert.False(t, isValidFormat(f), f)
	}

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "validate", "."})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
