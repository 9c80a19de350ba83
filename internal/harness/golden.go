package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/diffable/internal/ir"
)

// goldenValue is the document stored in a golden file: the scenario
// identity, the full trace and the final value.
func goldenValue(scenario *Scenario, result *Result) ir.Object {
	policy := "default"
	if scenario.Policy != "" {
		policy = scenario.Policy
	}
	trace := make(ir.Array, len(result.Trace))
	for i, e := range result.Trace {
		trace[i] = e.toValue()
	}
	return ir.Object{
		"name":   ir.String(scenario.Name),
		"state":  ir.String(scenario.State),
		"policy": ir.String(policy),
		"trace":  trace,
		"final":  valueOrEmpty(result.Final),
	}
}

// GoldenJSON returns the canonical JSON stored in a scenario's golden file.
func GoldenJSON(scenario *Scenario, result *Result) ([]byte, error) {
	return ir.MarshalCanonical(goldenValue(scenario, result))
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. A trace that differs from the
// golden file fails t.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against the scenario's golden
// file without re-running it.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := GoldenJSON(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
