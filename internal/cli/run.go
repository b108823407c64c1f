package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/pantry/internal/engine"
	"github.com/roach88/pantry/internal/store"
	"github.com/roach88/pantry/internal/wire"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigFlags

	// RunIDGenerator allows overriding the journal run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDGenerator store.RunIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [input-file]",
		Short: "Process a record stream",
		Long: `Process a pantry record stream and print the acknowledgements and
courier reports.

The first record is the header "<period> <capacity>"; every following
non-blank record is one command, processed at its own tick. Input is read
from the file argument, or stdin when none is given.

With --db (or journal in pantry.cue) the run is journaled to SQLite and
can later be verified with "pantry replay".

Exit codes:
  0 - Stream processed
  2 - Malformed input, bad configuration or journal error

Examples:
  pantry run orders.txt
  pantry run --dialect it < ordini.txt
  pantry run --db ./pantry.db orders.txt`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStream(opts, args, cmd)
		},
	}

	addConfigFlags(cmd, &opts.ConfigFlags)

	return cmd
}

func runStream(opts *RunOptions, args []string, cmd *cobra.Command) error {
	cfg, err := LoadConfig(cmd, &opts.ConfigFlags)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	dialect, err := wire.ParseDialect(cfg.Dialect)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg, opts.Verbose)

	in := cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open input", err)
		}
		defer f.Close()
		in = f
	}

	dec := wire.NewDecoder(in, dialect)
	header, err := dec.Header()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read header", err)
	}

	e := engine.New(engine.Limits{
		Period:         header.Period,
		Capacity:       header.Capacity,
		MaxIngredients: cfg.MaxIngredients,
	}, engine.WithLogger(logger))

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	renderer := wire.NewRenderer(cmd.OutOrStdout(), dialect)
	sinks := []engine.Sink{renderer}

	if cfg.Journal != "" {
		st, runID, err := openJournal(ctx, opts, cfg.Journal, header, dialect, cfg.MaxIngredients)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		logger.Info("journaling run", "run", runID, "db", cfg.Journal)
		// Journal writes survive cancellation.
		sinks = append(sinks, st.NewRecorder(context.WithoutCancel(ctx), runID))
	}

	loop := engine.NewLoop(e)
	decodeErr := make(chan error, 1)
	go produce(ctx, dec, loop, decodeErr)

	runErr := loop.Run(ctx, engine.Tee(sinks...))

	select {
	case err := <-decodeErr:
		if err != nil {
			_ = renderer.Flush()
			return WrapExitError(ExitCommandError, "malformed input", err)
		}
	default:
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			_ = renderer.Flush()
			logger.Info("run interrupted", "tick", e.Tick())
			return nil
		}
		return WrapExitError(ExitCommandError, "run failed", runErr)
	}

	logger.Info("run finished", "ticks", e.Tick())
	return nil
}

// produce feeds decoded commands into loop. At end of input it closes the
// loop, which runs the trailing dispatch. On a malformed record it reports
// the error and aborts instead: commands already queued are still applied,
// but no trailing dispatch runs.
func produce(ctx context.Context, dec *wire.Decoder, loop *engine.Loop, errc chan<- error) {
	for {
		c, err := dec.Next()
		if errors.Is(err, io.EOF) {
			errc <- nil
			loop.Close()
			return
		}
		if err != nil {
			errc <- err
			loop.Abort()
			return
		}
		if !loop.Enqueue(c) || ctx.Err() != nil {
			return
		}
	}
}

func openJournal(ctx context.Context, opts *RunOptions, path string, header wire.Header, dialect wire.Dialect, maxIngredients int) (*store.Store, string, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, "", WrapExitError(ExitCommandError, "failed to open journal", err)
	}

	gen := opts.RunIDGenerator
	if gen == nil {
		gen = store.UUIDv7Generator{}
	}
	run, err := st.CreateRun(ctx, store.Run{
		ID:             gen.Generate(),
		Period:         header.Period,
		Capacity:       header.Capacity,
		Dialect:        string(dialect),
		MaxIngredients: maxIngredients,
	})
	if err != nil {
		st.Close()
		return nil, "", WrapExitError(ExitCommandError, "failed to create run", err)
	}
	return st, run.ID, nil
}
