package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/diffable/internal/ir"
	"github.com/roach88/diffable/internal/store"
)

// runCLI executes the root command with args and returns stdout, stderr
// and the command error.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

func TestStates_EmptyDatabase(t *testing.T) {
	out, _, err := runCLI(t, "states", "--db", tempDB(t))
	require.NoError(t, err)
	assert.Contains(t, out, "No states found")
}

func TestSetThenShow(t *testing.T) {
	db := tempDB(t)

	out, _, err := runCLI(t, "set", "cart", "$.owner", `"ana"`, "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "Recorded 1 change(s) for cart:\n  ADD $.owner \"ana\"\n", out)

	_, _, err = runCLI(t, "set", "cart", "$.items", `[{"sku":"a1","qty":1}]`, "--db", db)
	require.NoError(t, err)

	out, _, err = runCLI(t, "set", "cart", "$.items[0].qty", "2", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "UPDATE $.items[0].qty 1 -> 2")

	out, _, err = runCLI(t, "show", "cart", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, `{"items":[{"qty":2,"sku":"a1"}],"owner":"ana"}`+"\n", out)

	out, _, err = runCLI(t, "states", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "cart\n", out)
}

func TestSet_SameValueRecordsNothing(t *testing.T) {
	db := tempDB(t)

	_, _, err := runCLI(t, "set", "cart", "$.n", "1", "--db", db)
	require.NoError(t, err)

	out, _, err := runCLI(t, "set", "cart", "$.n", "1", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No changes.\n", out)
}

func TestSet_InvalidInput(t *testing.T) {
	db := tempDB(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad path", []string{"set", "cart", "a.b", "1"}, "invalid path"},
		{"bad json", []string{"set", "cart", "$.a", "{"}, "invalid JSON value"},
		{"missing parent", []string{"set", "cart", "$.a.b", "1"}, "failed to write $.a.b"},
		{"bad policy", []string{"set", "cart", "$.a", "1", "--policy", "often"}, "invalid --policy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, append(tt.args, "--db", db)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestDelete(t *testing.T) {
	db := tempDB(t)

	_, _, err := runCLI(t, "set", "cart", "$.items", `["a","b","c"]`, "--db", db)
	require.NoError(t, err)

	out, _, err := runCLI(t, "delete", "cart", "$.items[0]", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, `UPDATE $.items[0] "a" -> "b"`)
	assert.Contains(t, out, `REMOVE $.items[2] "c"`)

	out, _, err = runCLI(t, "delete", "cart", "$.missing", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No changes.\n", out)

	out, _, err = runCLI(t, "show", "cart", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, `{"items":["b","c"]}`+"\n", out)
}

func TestShow_UnknownState(t *testing.T) {
	_, _, err := runCLI(t, "show", "nope", "--db", tempDB(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `state "nope" not found`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestShow_JSON(t *testing.T) {
	db := tempDB(t)
	_, _, err := runCLI(t, "set", "cart", "$.n", "1", "--db", db)
	require.NoError(t, err)

	out, _, err := runCLI(t, "show", "cart", "--db", db, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   ShowResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "cart", resp.Data.State)
	assert.JSONEq(t, `{"n":1}`, string(resp.Data.Value))
}

func TestShow_CorruptLogExitsWithFailure(t *testing.T) {
	db := tempDB(t)
	st, err := store.Open(db)
	require.NoError(t, err)
	_, err = st.AppendChanges(context.Background(), "cart", "x", []ir.AtomicChange{
		ir.NewRemove(ir.Root.Child("ghost"), ir.Int(1)),
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, _, err = runCLI(t, "show", "cart", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "PATH_RESOLUTION")
}

func TestInspect(t *testing.T) {
	db := tempDB(t)
	_, _, err := runCLI(t, "set", "cart", "$.a", "1", "--db", db, "--policy", "every-change")
	require.NoError(t, err)
	_, _, err = runCLI(t, "set", "cart", "$.a", "2", "--db", db, "--policy", "never")
	require.NoError(t, err)

	out, _, err := runCLI(t, "inspect", "cart", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Changes: 2")
	assert.Contains(t, out, "ADD $.a 1")
	assert.Contains(t, out, "UPDATE $.a 1 -> 2")
	assert.Contains(t, out, "Snapshots: 1")
	assert.Contains(t, out, "changes_id=1")

	out, _, err = runCLI(t, "inspect", "cart", "--db", db, "--after", "1", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data InspectResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Changes, 1)
	c := resp.Data.Changes[0]
	assert.Equal(t, int64(2), c.ID)
	assert.Equal(t, "UPDATE", c.Type)
	assert.Equal(t, "$.a", c.Path)
	assert.Equal(t, "a", c.Key)
	assert.Equal(t, "Number", c.ValueType)
	assert.JSONEq(t, "2", string(c.Value))
	assert.JSONEq(t, "1", string(c.OldValue))
	require.Len(t, resp.Data.Snapshots, 1)
	assert.Equal(t, int64(1), resp.Data.Snapshots[0].ChangeID)
}

func TestSnapshot(t *testing.T) {
	db := tempDB(t)

	_, _, err := runCLI(t, "snapshot", "cart", "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no changes to snapshot")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = runCLI(t, "set", "cart", "$.a", "1", "--db", db, "--policy", "never")
	require.NoError(t, err)

	out, _, err := runCLI(t, "snapshot", "cart", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "Snapshot #1 of cart bound to change 1\n", out)
}

func TestVerify(t *testing.T) {
	db := tempDB(t)
	for _, v := range []string{"1", "2", "3"} {
		_, _, err := runCLI(t, "set", "cart", "$.a", v, "--db", db, "--policy", "every:2")
		require.NoError(t, err)
	}

	out, _, err := runCLI(t, "verify", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ cart: 3 change(s), 1 snapshot(s)")

	st, err := store.Open(db)
	require.NoError(t, err)
	_, err = st.InsertSnapshot(context.Background(), ir.Snapshot{
		State:     "cart",
		Value:     ir.Object{"a": ir.Int(99)},
		ChangeID:  3,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, _, err = runCLI(t, "verify", "cart", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ cart")
	assert.Contains(t, out, "value differs")
	assert.Contains(t, out, "Error [E_VERIFY]")
}

func TestBadgerBackend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badger")

	_, _, err := runCLI(t, "set", "cart", "$.a", `{"b":1}`, "--backend", "badger", "--db", dir)
	require.NoError(t, err)
	_, _, err = runCLI(t, "set", "cart", "$.a.b", "2", "--backend", "badger", "--db", dir)
	require.NoError(t, err)

	out, _, err := runCLI(t, "show", "cart", "--backend", "badger", "--db", dir)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"b":2}}`+"\n", out)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "state.db")
	cfgPath := filepath.Join(dir, "diffable.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"database: "+db+"\ndriver: sqlite\nsnapshot_policy: every-change\n"), 0o644))

	for _, v := range []string{"1", "2"} {
		_, _, err := runCLI(t, "set", "cart", "$.a", v, "--config", cfgPath)
		require.NoError(t, err)
	}

	out, _, err := runCLI(t, "inspect", "cart", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Snapshots: 2")

	_, err = os.Stat(db)
	assert.NoError(t, err, "database path comes from the config file")
}

func TestConfigFile_Invalid(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "diffable.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("backend: mongo\n"), 0o644))

	_, _, err := runCLI(t, "states", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "backend")
}

func TestVerbose_LogsToStderr(t *testing.T) {
	db := tempDB(t)

	out, errOut, err := runCLI(t, "set", "cart", "$.a", "1", "--db", db, "-v")
	require.NoError(t, err)
	assert.NotContains(t, out, "level=")
	assert.Contains(t, errOut, "level=DEBUG")
	assert.Contains(t, errOut, "msg=appended")
	assert.Contains(t, errOut, "state=cart")
}
