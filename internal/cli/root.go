package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions are the persistent flags every subcommand sees.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats are the values --format accepts.
var ValidFormats = []string{"text", "json"}

// NewRootCommand builds the pantry command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pantry",
		Short: "Pantry - tick-driven pantry and order engine",
		Long: `Pantry processes a stream of recipe, restock and order records, one
command per tick, and prints acknowledgements and periodic courier reports.

Runs can be journaled to SQLite, replayed to verify determinism and checked
against YAML conformance scenarios.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(
		NewRunCommand(opts),
		NewReplayCommand(opts),
		NewTraceCommand(opts),
		NewValidateCommand(opts),
		NewTestCommand(opts),
	)

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
