package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/pantry/internal/ir"
	"github.com/roach88/pantry/internal/wire"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Output   []string // Full transcript for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull output:\n")
	for i, line := range e.Output {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, line)
	}

	return buf.String()
}

// assertOutputContains checks that some output line equals the expected line.
func assertOutputContains(result *Result, assertion Assertion) error {
	if slices.Contains(result.Output, assertion.Line) {
		return nil
	}
	return &AssertionError{
		Type:     AssertOutputContains,
		Expected: fmt.Sprintf("line %q", assertion.Line),
		Actual:   "not found in output",
		Output:   result.Output,
	}
}

// assertOutputOrder checks that lines appear in the specified order.
// Lines don't need to be adjacent; each match must come after the previous one.
func assertOutputOrder(result *Result, assertion Assertion) error {
	pos := 0
	for i, want := range assertion.Lines {
		idx := slices.Index(result.Output[pos:], want)
		if idx < 0 {
			actual := fmt.Sprintf("missing line: %q", want)
			if i > 0 && slices.Contains(result.Output, want) {
				actual = fmt.Sprintf("%q appears before %q", want, assertion.Lines[i-1])
			}
			return &AssertionError{
				Type:     AssertOutputOrder,
				Expected: fmt.Sprintf("lines in order: %q", assertion.Lines),
				Actual:   actual,
				Output:   result.Output,
			}
		}
		pos += idx + 1
	}
	return nil
}

// assertAckCount checks that exactly Count commands got the given ack.
func assertAckCount(result *Result, assertion Assertion) error {
	count := 0
	for _, event := range result.Trace {
		if event.Type == EventCommand && event.Ack == ir.Ack(assertion.Ack) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertAckCount,
			Expected: fmt.Sprintf("%d commands acknowledged %s", assertion.Count, assertion.Ack),
			Actual:   fmt.Sprintf("%d commands", count),
			Output:   result.Output,
		}
	}
	return nil
}

// assertDispatchAt checks the rendered report of the dispatch at Tick.
// An empty load renders as the dialect's empty-load line.
func assertDispatchAt(result *Result, assertion Assertion, dialect wire.Dialect) error {
	for _, event := range result.Trace {
		if event.Type != EventDispatch || event.Tick != assertion.Tick {
			continue
		}
		got := wire.DispatchLines(event.Dispatch, dialect)
		if slices.Equal(got, assertion.Lines) {
			return nil
		}
		return &AssertionError{
			Type:     AssertDispatchAt,
			Expected: fmt.Sprintf("dispatch at tick %d: %q", assertion.Tick, assertion.Lines),
			Actual:   fmt.Sprintf("%q", got),
			Output:   result.Output,
		}
	}
	return &AssertionError{
		Type:     AssertDispatchAt,
		Expected: fmt.Sprintf("dispatch at tick %d", assertion.Tick),
		Actual:   "no dispatch at that tick",
		Output:   result.Output,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, dialect wire.Dialect) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertOutputContains:
			err = assertOutputContains(result, assertion)
		case AssertOutputOrder:
			err = assertOutputOrder(result, assertion)
		case AssertAckCount:
			err = assertAckCount(result, assertion)
		case AssertDispatchAt:
			err = assertDispatchAt(result, assertion, dialect)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
