package wire

import (
	"bufio"
	"fmt"
	"io"

	"github.com/roach88/pantry/internal/ir"
)

// Renderer writes acknowledgements and dispatch reports as text lines.
//
// Renderer satisfies engine.Sink. Output is buffered; Finish flushes, and
// Flush may be called at any point to push partial output.
type Renderer struct {
	w       *bufio.Writer
	dialect Dialect
}

// NewRenderer creates a renderer writing dialect d to w.
func NewRenderer(w io.Writer, d Dialect) *Renderer {
	return &Renderer{w: bufio.NewWriter(w), dialect: d}
}

// Outcome writes the dispatch that fired at the outcome's tick, if any,
// followed by the acknowledgement.
func (r *Renderer) Outcome(_ ir.Command, out ir.Outcome) error {
	if out.Dispatch != nil {
		if err := r.Dispatch(out.Dispatch); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(r.w, r.dialect.AckText(out.Ack, out.Token))
	return err
}

// Finish writes the trailing dispatch, if any, and flushes.
func (r *Renderer) Finish(d *ir.Dispatch) error {
	if d != nil {
		if err := r.Dispatch(d); err != nil {
			return err
		}
	}
	return r.Flush()
}

// Dispatch writes one report: a line per shipment, or the empty-load line.
func (r *Renderer) Dispatch(d *ir.Dispatch) error {
	for _, line := range DispatchLines(d, r.dialect) {
		if _, err := fmt.Fprintln(r.w, line); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes any buffered output.
func (r *Renderer) Flush() error {
	return r.w.Flush()
}

// DispatchLines renders a report as "<creationTick> <recipe> <quantity>"
// lines, or the dialect's single empty-load line.
func DispatchLines(d *ir.Dispatch, dialect Dialect) []string {
	if d.Empty() {
		return []string{dialect.EmptyLoad()}
	}
	lines := make([]string, 0, len(d.Shipments))
	for _, s := range d.Shipments {
		lines = append(lines, fmt.Sprintf("%d %s %d", s.Tick, s.Recipe, s.Quantity))
	}
	return lines
}

// OutcomeLines renders everything one outcome prints, in output order.
func OutcomeLines(out ir.Outcome, dialect Dialect) []string {
	var lines []string
	if out.Dispatch != nil {
		lines = append(lines, DispatchLines(out.Dispatch, dialect)...)
	}
	return append(lines, dialect.AckText(out.Ack, out.Token))
}
