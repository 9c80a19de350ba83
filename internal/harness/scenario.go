package harness

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/diffable/internal/durable"
	"github.com/roach88/diffable/internal/ir"
)

// Step operations.
const (
	OpSet         = "set"
	OpDelete      = "delete"
	OpAppend      = "append"
	OpRemoveIndex = "remove_index"
	OpSnapshot    = "snapshot"
	OpReopen      = "reopen"
)

// Assertion types.
const (
	AssertFinalValue  = "final_value"
	AssertSnapshotIDs = "snapshot_ids"
	AssertChangeCount = "change_count"
	AssertVerify      = "verify"
)

// Scenario is a scripted sequence of writes against one durable state.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	State       string         `yaml:"state"`
	Policy      string         `yaml:"policy"`
	Initial     map[string]any `yaml:"initial"`
	Steps       []Step         `yaml:"steps"`
	Assertions  []Assertion    `yaml:"assertions"`
}

// Step is one write, snapshot or reopen.
//
// Path addresses the location the step acts on: the value to set or
// delete, or the array to append to or remove from. Error, when set,
// declares that the step must fail with an error containing it.
type Step struct {
	Op    string `yaml:"op"`
	Path  string `yaml:"path"`
	Value any    `yaml:"value"`
	Index *int   `yaml:"index"`
	Error string `yaml:"error"`
}

// Assertion is checked after the last step.
type Assertion struct {
	Type string `yaml:"type"`

	// final_value: Path defaults to the root.
	Path   string `yaml:"path"`
	Expect any    `yaml:"expect"`

	// snapshot_ids: the change ids the stored snapshots are bound to, oldest first.
	ChangeIDs []int64 `yaml:"change_ids"`

	// change_count
	Count *int `yaml:"count"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	defer f.Close()
	return ParseScenario(f, path)
}

// ParseScenario decodes a scenario from r. Unknown fields are rejected.
func ParseScenario(r io.Reader, source string) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse scenario %s: empty document", source)
		}
		return nil, fmt.Errorf("failed to parse scenario %s: %w", source, err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", source, err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.State == "" {
		return fmt.Errorf("state is required")
	}
	if s.Policy != "" {
		if _, err := durable.ParsePolicy(s.Policy); err != nil {
			return fmt.Errorf("policy: %w", err)
		}
	}
	if s.Initial != nil {
		if _, err := ir.FromGo(s.Initial); err != nil {
			return fmt.Errorf("initial: %w", err)
		}
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *Step) error {
	needsPath := true
	switch step.Op {
	case OpSet, OpAppend:
		if step.Value == nil {
			return fmt.Errorf("steps[%d]: value is required for %s", index, step.Op)
		}
	case OpDelete:
	case OpRemoveIndex:
		if step.Index == nil {
			return fmt.Errorf("steps[%d]: index is required for remove_index", index)
		}
	case OpSnapshot, OpReopen:
		needsPath = false
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	if !needsPath {
		return nil
	}
	path, err := ir.ParsePath(step.Path)
	if err != nil {
		return fmt.Errorf("steps[%d]: %w", index, err)
	}
	if (step.Op == OpSet || step.Op == OpDelete) && len(path) == 0 {
		return fmt.Errorf("steps[%d]: %s needs a path below the root", index, step.Op)
	}
	if step.Value != nil {
		if _, err := ir.FromGo(step.Value); err != nil {
			return fmt.Errorf("steps[%d]: value: %w", index, err)
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertFinalValue:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for final_value", index)
		}
		if a.Path != "" {
			if _, err := ir.ParsePath(a.Path); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertSnapshotIDs:
		if a.ChangeIDs == nil {
			return fmt.Errorf("assertions[%d]: change_ids is required for snapshot_ids", index)
		}
	case AssertChangeCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for change_count", index)
		}
	case AssertVerify:
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
