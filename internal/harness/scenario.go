package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pantry/internal/catalog"
	"github.com/roach88/pantry/internal/engine"
	"github.com/roach88/pantry/internal/ir"
	"github.com/roach88/pantry/internal/wire"
)

// DefaultRunID is the journal id used when a scenario does not name one.
// A fixed id keeps command and dispatch ids stable across runs.
const DefaultRunID = "scenario-run"

// Scenario defines a conformance test scenario: a run header, the raw input
// records, and what the run must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Period and Capacity form the header record.
	Period   int64 `yaml:"period"`
	Capacity int64 `yaml:"capacity"`

	// Dialect selects the record vocabulary. Empty means English.
	Dialect string `yaml:"dialect,omitempty"`

	// MaxIngredients caps recipe size. Zero selects the catalog default.
	MaxIngredients int `yaml:"max_ingredients,omitempty"`

	// RunID overrides DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`

	// Commands are raw input records, one per tick.
	Commands []string `yaml:"commands"`

	// Expect is the exact output transcript, if given.
	Expect []string `yaml:"expect,omitempty"`

	// Final describes the engine state after the trailing dispatch.
	Final *FinalState `yaml:"final,omitempty"`

	// Assertions validate the trace and output.
	// Supported types: output_contains, output_order, ack_count, dispatch_at
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// FinalState is checked against the engine snapshot once the stream ends.
// Nil fields are not checked.
type FinalState struct {
	Waiting *int             `yaml:"waiting,omitempty"`
	Queued  *int             `yaml:"queued,omitempty"`
	Stock   map[string]int64 `yaml:"stock,omitempty"`
	Recipes []string         `yaml:"recipes,omitempty"`
}

// Assertion validates the trace or the output transcript.
type Assertion struct {
	// Type specifies the assertion type:
	// - "output_contains": an output line equals Line
	// - "output_order": Lines appear in order, not necessarily adjacent
	// - "ack_count": exactly Count commands were acknowledged with Ack
	// - "dispatch_at": the dispatch at Tick printed exactly Lines
	Type string `yaml:"type"`

	Line  string   `yaml:"line,omitempty"`
	Lines []string `yaml:"lines,omitempty"`
	Ack   string   `yaml:"ack,omitempty"`
	Count int      `yaml:"count,omitempty"`
	Tick  int64    `yaml:"tick,omitempty"`
}

// Assertion type constants.
const (
	AssertOutputContains = "output_contains"
	AssertOutputOrder    = "output_order"
	AssertAckCount       = "ack_count"
	AssertDispatchAt     = "dispatch_at"
)

var knownAcks = map[ir.Ack]bool{
	ir.AckAdded:         true,
	ir.AckIgnored:       true,
	ir.AckRemoved:       true,
	ir.AckNotPresent:    true,
	ir.AckPendingOrders: true,
	ir.AckRestocked:     true,
	ir.AckAccepted:      true,
	ir.AckRejected:      true,
	ir.AckUnrecognized:  true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, in file name order.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if _, err := wire.ParseHeader(fmt.Sprintf("%d %d", s.Period, s.Capacity)); err != nil {
		return fmt.Errorf("header: %w", err)
	}
	if s.MaxIngredients < 0 || s.MaxIngredients > 64 {
		return fmt.Errorf("max_ingredients must be between 1 and 64")
	}

	dialect, err := wire.ParseDialect(s.Dialect)
	if err != nil {
		return err
	}

	if len(s.Commands) == 0 {
		return fmt.Errorf("commands list is required and must be non-empty")
	}
	for i, line := range s.Commands {
		if _, err := wire.ParseCommand(line, dialect); err != nil {
			return fmt.Errorf("commands[%d]: %w", i, err)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOutputContains:
		if a.Line == "" {
			return fmt.Errorf("assertions[%d]: line is required for output_contains", index)
		}
	case AssertOutputOrder:
		if len(a.Lines) < 2 {
			return fmt.Errorf("assertions[%d]: at least two lines are required for output_order", index)
		}
	case AssertAckCount:
		if !knownAcks[ir.Ack(a.Ack)] {
			return fmt.Errorf("assertions[%d]: unknown ack %q for ack_count", index, a.Ack)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertDispatchAt:
		if a.Tick <= 0 {
			return fmt.Errorf("assertions[%d]: positive tick is required for dispatch_at", index)
		}
		if len(a.Lines) == 0 {
			return fmt.Errorf("assertions[%d]: lines are required for dispatch_at", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// limits returns the engine limits of the scenario's run.
func (s *Scenario) limits() engine.Limits {
	max := s.MaxIngredients
	if max == 0 {
		max = catalog.DefaultMaxIngredients
	}
	return engine.Limits{Period: s.Period, Capacity: s.Capacity, MaxIngredients: max}
}

func (s *Scenario) runID() string {
	if s.RunID != "" {
		return s.RunID
	}
	return DefaultRunID
}
