package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/roach88/pantry/internal/ir"
)

// Sink receives what the loop produces, in tick order.
type Sink interface {
	// Outcome is called once per applied command.
	Outcome(cmd ir.Command, out ir.Outcome) error

	// Finish is called once with the trailing dispatch (nil if none was due)
	// after the queue has been closed and drained.
	Finish(d *ir.Dispatch) error
}

// Tee returns a Sink that forwards to each sink in order, stopping at the
// first error.
func Tee(sinks ...Sink) Sink {
	return teeSink(sinks)
}

type teeSink []Sink

func (t teeSink) Outcome(cmd ir.Command, out ir.Outcome) error {
	for _, s := range t {
		if err := s.Outcome(cmd, out); err != nil {
			return err
		}
	}
	return nil
}

func (t teeSink) Finish(d *ir.Dispatch) error {
	for _, s := range t {
		if err := s.Finish(d); err != nil {
			return err
		}
	}
	return nil
}

// ErrAborted is returned by Run when the stream was ended with Abort.
var ErrAborted = errors.New("stream aborted")

// Loop serializes commands from any number of producers into one Engine.
//
// Thread-safety model:
//   - Enqueue(), Close(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
type Loop struct {
	engine  *Engine
	queue   *commandQueue
	aborted atomic.Bool
}

// NewLoop wraps e. The engine must not be used directly while Run is active.
func NewLoop(e *Engine) *Loop {
	return &Loop{engine: e, queue: newCommandQueue()}
}

// Enqueue submits a command for processing by the Run loop.
// Returns false once the loop has been closed.
func (l *Loop) Enqueue(c ir.Command) bool {
	return l.queue.Enqueue(c)
}

// Close marks the end of the command stream. Run drains what is queued,
// runs the trailing dispatch and returns.
func (l *Loop) Close() {
	l.queue.Close()
}

// Abort ends the command stream like Close, but Run skips the trailing
// dispatch and returns ErrAborted once the queue is drained.
func (l *Loop) Abort() {
	l.aborted.Store(true)
	l.queue.Close()
}

// Run applies queued commands until the stream is closed and drained, or ctx
// is cancelled.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// A sink error stops the loop and is returned; the command it was reporting
// has already been applied.
func (l *Loop) Run(ctx context.Context, sink Sink) error {
	l.engine.logger.Info("loop starting", "tick", l.engine.Tick())

	for {
		if cmd, ok := l.queue.TryDequeue(); ok {
			out := l.engine.Apply(cmd)
			if err := sink.Outcome(cmd, out); err != nil {
				l.queue.Close()
				return fmt.Errorf("sink outcome at tick %d: %w", out.Tick, err)
			}
			continue
		}

		// Enqueue is refused after Close, so closed and empty is final
		if l.queue.Closed() && l.queue.Len() == 0 {
			if l.aborted.Load() {
				l.engine.logger.Info("loop stopping: stream aborted", "tick", l.engine.Tick())
				return ErrAborted
			}
			final := l.engine.Finish()
			if err := sink.Finish(final); err != nil {
				return fmt.Errorf("sink finish: %w", err)
			}
			l.engine.logger.Info("loop stopping: stream closed", "ticks", l.engine.Tick())
			return nil
		}

		select {
		case <-ctx.Done():
			l.engine.logger.Info("loop stopping: context cancelled", "tick", l.engine.Tick())
			l.queue.Close()
			return ctx.Err()
		case <-l.queue.Wait():
		}
	}
}
