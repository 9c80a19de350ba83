package replay

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/diffable/internal/ir"
	"github.com/roach88/diffable/internal/observe"
)

func entries(changes ...ir.AtomicChange) []ir.ChangeLogEntry {
	out := make([]ir.ChangeLogEntry, len(changes))
	for i, c := range changes {
		out[i] = ir.ChangeLogEntry{ID: int64(i + 1), State: "test", Change: c}
	}
	return out
}

func TestReplayEmptyReturnsStart(t *testing.T) {
	fallback := ir.Object{"a": ir.Int(1)}

	got, err := Replay(nil, fallback)
	require.NoError(t, err)
	assert.True(t, ir.Equal(fallback, got))

	snap := &ir.Snapshot{Value: ir.Object{"b": ir.Int(2)}, ChangeID: 7}
	got, err = Replay(Sequence(snap, nil), fallback)
	require.NoError(t, err)
	assert.True(t, ir.Equal(ir.Object{"b": ir.Int(2)}, got))

	got, err = Replay(nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReplayAppliesInOrder(t *testing.T) {
	p := ir.MustParsePath
	log := entries(
		ir.NewAdd(p("$.a"), ir.Object{}),
		ir.NewAdd(p("$.a.b"), ir.Int(1)),
		ir.NewUpdate(p("$.a.b"), ir.Int(2), ir.Int(1)),
		ir.NewAdd(p("$.xs"), ir.Array{}),
		ir.NewAdd(p("$.xs[0]"), ir.String("x")),
		ir.NewAdd(p("$.xs[1]"), ir.String("y")),
		ir.NewRemove(p("$.xs[0]"), ir.String("x")),
		ir.NewRemove(p("$.gone"), ir.Bool(true)),
	)

	got, err := Replay(Sequence(nil, log), ir.Object{"gone": ir.Bool(true)})
	require.NoError(t, err)

	want := ir.Object{
		"a":  ir.Object{"b": ir.Int(2)},
		"xs": ir.Array{ir.String("y")},
	}
	assert.True(t, ir.Equal(want, got), "got %s", ir.MustMarshalCanonical(got))
}

func TestReplayDoesNotModifyInputs(t *testing.T) {
	base := ir.Object{"a": ir.Object{"b": ir.Int(1)}}
	snap := &ir.Snapshot{Value: base, ChangeID: 1}
	log := []ir.ChangeLogEntry{{ID: 2, Change: ir.NewUpdate(ir.MustParsePath("$.a.b"), ir.Int(2), ir.Int(1))}}

	got, err := Replay(Sequence(snap, log), nil)
	require.NoError(t, err)
	assert.True(t, ir.Equal(ir.Object{"a": ir.Object{"b": ir.Int(2)}}, got))
	assert.True(t, ir.Equal(ir.Object{"a": ir.Object{"b": ir.Int(1)}}, base))

	got["a"].(ir.Object)["b"] = ir.Int(9)
	assert.True(t, ir.Equal(ir.Int(2), log[0].Change.Value))
}

func TestReplaySnapshotMarkerPosition(t *testing.T) {
	actions := []Action{
		ChangeAction{Entry: ir.ChangeLogEntry{ID: 1, Change: ir.NewAdd(ir.MustParsePath("$.a"), ir.Int(1))}},
		SnapshotAction{Snapshot: ir.Snapshot{Value: ir.Object{}, ChangeID: 1}},
	}

	_, err := Replay(actions, ir.Object{})
	require.Error(t, err)
	assert.True(t, IsMalformedReplay(err))
	assert.False(t, IsPathResolution(err))

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 1, re.Index)
}

func TestReplayRejectsOutOfOrderIDs(t *testing.T) {
	p := ir.MustParsePath
	log := []ir.ChangeLogEntry{
		{ID: 2, Change: ir.NewAdd(p("$.a"), ir.Int(1))},
		{ID: 1, Change: ir.NewAdd(p("$.b"), ir.Int(1))},
	}
	_, err := Replay(Sequence(nil, log), ir.Object{})
	assert.True(t, IsMalformedReplay(err))

	snap := &ir.Snapshot{Value: ir.Object{}, ChangeID: 5}
	_, err = Replay(Sequence(snap, []ir.ChangeLogEntry{{ID: 5, Change: ir.NewAdd(p("$.a"), ir.Int(1))}}), nil)
	assert.True(t, IsMalformedReplay(err))
}

func TestReplayRejectsInvalidChange(t *testing.T) {
	bad := ir.AtomicChange{Op: ir.OpAdd, Path: ir.MustParsePath("$.a")}
	_, err := Replay(Changes([]ir.AtomicChange{bad}), ir.Object{})
	assert.True(t, IsMalformedReplay(err))
}

func TestReplayPathResolution(t *testing.T) {
	p := ir.MustParsePath
	tests := []struct {
		name   string
		start  ir.Object
		change ir.AtomicChange
	}{
		{"missing parent", ir.Object{}, ir.NewAdd(p("$.a.b"), ir.Int(1))},
		{"add existing key", ir.Object{"a": ir.Int(1)}, ir.NewAdd(p("$.a"), ir.Int(2))},
		{"update missing", ir.Object{}, ir.NewUpdate(p("$.a"), ir.Int(2), ir.Int(1))},
		{"update stale old value", ir.Object{"a": ir.Int(5)}, ir.NewUpdate(p("$.a"), ir.Int(2), ir.Int(1))},
		{"remove missing", ir.Object{}, ir.NewRemove(p("$.a"), ir.Int(1))},
		{"remove stale old value", ir.Object{"a": ir.Int(5)}, ir.NewRemove(p("$.a"), ir.Int(1))},
		{"array index gone", ir.Object{"xs": ir.Array{ir.Int(1)}}, ir.NewRemove(p("$.xs[3]"), ir.Int(1))},
		{"array add past end", ir.Object{"xs": ir.Array{}}, ir.NewAdd(p("$.xs[2]"), ir.Int(1))},
		{"key into array", ir.Object{"xs": ir.Array{}}, ir.NewAdd(p("$.xs.k"), ir.Int(1))},
		{"index into object", ir.Object{"o": ir.Object{}}, ir.NewAdd(p("$.o[0]"), ir.Int(1))},
		{"parent is scalar", ir.Object{"n": ir.Int(1)}, ir.NewAdd(p("$.n.k"), ir.Int(1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := []ir.ChangeLogEntry{{ID: 3, Change: tt.change}}
			_, err := Replay(Sequence(nil, log), tt.start)
			require.Error(t, err)
			assert.True(t, IsPathResolution(err), "got %v", err)

			var re *Error
			require.ErrorAs(t, err, &re)
			assert.Equal(t, int64(3), re.ChangeID)
			assert.Equal(t, tt.change.Path.String(), re.Path)
		})
	}
}

func TestApply(t *testing.T) {
	v := ir.Object{"a": ir.Int(1)}
	got, err := Apply(v, ir.NewUpdate(ir.MustParsePath("$.a"), ir.Int(2), ir.Int(1)))
	require.NoError(t, err)
	assert.Equal(t, ir.Int(2), got["a"])
	assert.Equal(t, ir.Int(1), v["a"])
}

func TestApplyWithoutOldValues(t *testing.T) {
	v := ir.Object{"a": ir.Int(1), "b": ir.Array{ir.String("x"), ir.String("y")}}
	got, err := Apply(v,
		ir.AtomicChange{Op: ir.OpRemove, Path: ir.MustParsePath("$.a"), Key: "a"},
		ir.AtomicChange{Op: ir.OpRemove, Path: ir.MustParsePath("$.b[0]"), Key: "0"},
		ir.AtomicChange{Op: ir.OpUpdate, Path: ir.MustParsePath("$.b[0]"), Key: "0", Value: ir.String("z")},
	)
	require.NoError(t, err)
	assert.Equal(t, ir.Object{"b": ir.Array{ir.String("z")}}, got)
}

// history drives a handle through random writes and returns every value it
// passed through together with the resulting log.
func history(t *testing.T, seed int64, steps int) ([]ir.Object, []ir.ChangeLogEntry) {
	t.Helper()

	var (
		log    []ir.ChangeLogEntry
		values = []ir.Object{{}}
		nextID int64
	)
	h := observe.Wrap(ir.Object{}, func(changes []ir.AtomicChange, value ir.Object) error {
		for _, c := range changes {
			nextID++
			log = append(log, ir.ChangeLogEntry{ID: nextID, State: "fuzz", Change: c})
		}
		values = append(values, ir.CloneObject(value))
		return nil
	})

	rng := rand.New(rand.NewSource(seed))
	keys := []string{"a", "b", "c", "d"}
	for i := 0; i < steps; i++ {
		key := keys[rng.Intn(len(keys))]
		switch rng.Intn(6) {
		case 0:
			require.NoError(t, h.Set(key, ir.Int(rng.Intn(5))))
		case 1:
			require.NoError(t, h.Set(key, ir.Object{"n": ir.Int(rng.Intn(3)), "s": ir.String(fmt.Sprint(i))}))
		case 2:
			require.NoError(t, h.Set(key, ir.Array{ir.Int(rng.Intn(3))}))
		case 3:
			require.NoError(t, h.Delete(key))
		case 4:
			if _, ok := h.Value().(ir.Object)[key].(ir.Array); ok {
				require.NoError(t, h.Field(key).Append(ir.Bool(rng.Intn(2) == 0)))
			}
		case 5:
			if arr, ok := h.Value().(ir.Object)[key].(ir.Array); ok && len(arr) > 0 {
				require.NoError(t, h.Field(key).RemoveIndex(rng.Intn(len(arr))))
			}
		}
	}
	return values, log
}

func TestReplayDeterministic(t *testing.T) {
	_, log := history(t, 1, 200)

	first, err := Replay(Sequence(nil, log), ir.Object{})
	require.NoError(t, err)
	second, err := Replay(Sequence(nil, log), ir.Object{})
	require.NoError(t, err)

	assert.Equal(t, string(ir.MustMarshalCanonical(first)), string(ir.MustMarshalCanonical(second)))
}

func TestReplaySnapshotTailEquivalence(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			values, log := history(t, seed, 150)
			final := values[len(values)-1]

			full, err := Replay(Sequence(nil, log), ir.Object{})
			require.NoError(t, err)
			require.True(t, ir.Equal(final, full))

			// Snapshot after every prefix of the log and replay the tail.
			for cut := 0; cut <= len(log); cut++ {
				prefix, err := Replay(Sequence(nil, log[:cut]), ir.Object{})
				require.NoError(t, err)

				var changeID int64
				if cut > 0 {
					changeID = log[cut-1].ID
				}
				snap := &ir.Snapshot{State: "fuzz", Value: prefix, ChangeID: changeID}
				tail, err := Replay(Sequence(snap, log[cut:]), ir.Object{"ignored": ir.Bool(true)})
				require.NoError(t, err)
				require.True(t, ir.Equal(full, tail), "cut %d", cut)
			}
		})
	}
}
