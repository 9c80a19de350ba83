package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "array_edits.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "array_edits", s.Name)
	assert.Equal(t, "todo", s.State)
	assert.Equal(t, "never", s.Policy)
	assert.Equal(t, map[string]any{"items": []any{"a"}}, s.Initial)
	require.Len(t, s.Steps, 4)
	assert.Equal(t, OpRemoveIndex, s.Steps[1].Op)
	require.NotNil(t, s.Steps[1].Index)
	assert.Equal(t, 0, *s.Steps[1].Index)
	assert.Equal(t, "container does not exist", s.Steps[2].Error)
	require.Len(t, s.Assertions, 4)
	assert.Equal(t, []int64{3}, s.Assertions[1].ChangeIDs)
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "scenarios", "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenarioErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "empty document",
			yaml: "",
			want: "empty document",
		},
		{
			name: "unknown field",
			yaml: "name: x\nstate: s\nflow: []\nsteps:\n  - op: snapshot\n",
			want: "field flow not found",
		},
		{
			name: "missing name",
			yaml: "state: s\nsteps:\n  - op: snapshot\n",
			want: "name is required",
		},
		{
			name: "missing state",
			yaml: "name: x\nsteps:\n  - op: snapshot\n",
			want: "state is required",
		},
		{
			name: "bad policy",
			yaml: "name: x\nstate: s\npolicy: sometimes\nsteps:\n  - op: snapshot\n",
			want: "policy: invalid snapshot policy",
		},
		{
			name: "no steps",
			yaml: "name: x\nstate: s\n",
			want: "steps list is required",
		},
		{
			name: "unknown op",
			yaml: "name: x\nstate: s\nsteps:\n  - op: rename\n",
			want: `steps[0]: unknown op "rename"`,
		},
		{
			name: "set without value",
			yaml: "name: x\nstate: s\nsteps:\n  - op: set\n    path: $.a\n",
			want: "steps[0]: value is required for set",
		},
		{
			name: "set at root",
			yaml: "name: x\nstate: s\nsteps:\n  - op: set\n    path: $\n    value: 1\n",
			want: "steps[0]: set needs a path below the root",
		},
		{
			name: "bad path",
			yaml: "name: x\nstate: s\nsteps:\n  - op: delete\n    path: a.b\n",
			want: "must start with '$'",
		},
		{
			name: "remove_index without index",
			yaml: "name: x\nstate: s\nsteps:\n  - op: remove_index\n    path: $.a\n",
			want: "index is required for remove_index",
		},
		{
			name: "unknown assertion",
			yaml: "name: x\nstate: s\nsteps:\n  - op: snapshot\nassertions:\n  - type: trace_contains\n",
			want: `assertions[0]: unknown assertion type "trace_contains"`,
		},
		{
			name: "negative count",
			yaml: "name: x\nstate: s\nsteps:\n  - op: snapshot\nassertions:\n  - type: change_count\n    count: -1\n",
			want: "count must be non-negative",
		},
		{
			name: "final_value without expect",
			yaml: "name: x\nstate: s\nsteps:\n  - op: snapshot\nassertions:\n  - type: final_value\n",
			want: "expect is required for final_value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario(strings.NewReader(tt.yaml), "test.yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
