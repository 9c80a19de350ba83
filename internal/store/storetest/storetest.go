// Package storetest holds the behavioural contract every store.Backend must
// satisfy, shared by the SQLite and Badger test suites.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/diffable/internal/ir"
	"github.com/roach88/diffable/internal/store"
)

// OpenFunc returns a fresh, empty backend. Cleanup is the opener's job.
type OpenFunc func(t *testing.T) store.Backend

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func p(s string) ir.Path { return ir.MustParsePath(s) }

// Run executes the backend contract against open.
func Run(t *testing.T, open OpenFunc) {
	t.Run("AppendAssignsAscendingIDs", func(t *testing.T) { testAppendIDs(t, open(t)) })
	t.Run("AppendEmptyIsNoOp", func(t *testing.T) { testAppendEmpty(t, open(t)) })
	t.Run("AppendRejectsInvalidBatch", func(t *testing.T) { testAppendInvalid(t, open(t)) })
	t.Run("ChangesRoundTrip", func(t *testing.T) { testRoundTrip(t, open(t)) })
	t.Run("ChangesAfterFilters", func(t *testing.T) { testChangesAfter(t, open(t)) })
	t.Run("MaxChangeID", func(t *testing.T) { testMaxChangeID(t, open(t)) })
	t.Run("LatestSnapshot", func(t *testing.T) { testLatestSnapshot(t, open(t)) })
	t.Run("LatestSnapshotTie", func(t *testing.T) { testLatestSnapshotTie(t, open(t)) })
	t.Run("ListStates", func(t *testing.T) { testListStates(t, open(t)) })
}

func testAppendIDs(t *testing.T, b store.Backend) {
	ctx := context.Background()

	first, err := b.AppendChanges(ctx, "s", "b1", []ir.AtomicChange{
		ir.NewAdd(p("$.a"), ir.Int(1)),
		ir.NewAdd(p("$.b"), ir.Int(2)),
	})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Less(t, first[0], first[1])

	second, err := b.AppendChanges(ctx, "s", "b2", []ir.AtomicChange{ir.NewUpdate(p("$.a"), ir.Int(3), ir.Int(1))})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Less(t, first[1], second[0])
}

func testAppendEmpty(t *testing.T, b store.Backend) {
	ctx := context.Background()

	ids, err := b.AppendChanges(ctx, "s", "b1", nil)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, ok, err := b.MaxChangeID(ctx, "s")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testAppendInvalid(t *testing.T, b store.Backend) {
	ctx := context.Background()

	_, err := b.AppendChanges(ctx, "s", "b1", []ir.AtomicChange{
		ir.NewAdd(p("$.a"), ir.Int(1)),
		{Op: ir.OpRemove, Path: p("$.b")},
	})
	require.Error(t, err)

	entries, err := b.ChangesAfter(ctx, "s", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func testRoundTrip(t *testing.T, b store.Backend) {
	ctx := context.Background()
	changes := []ir.AtomicChange{
		ir.NewAdd(p("$.obj"), ir.Object{"n": ir.Int(1), "f": ir.Float(1.5)}),
		ir.NewUpdate(p("$.obj.n"), ir.Int(0), ir.Int(1)),
		ir.NewAdd(p("$.empty"), ir.String("")),
		ir.NewAdd(p("$.nil"), ir.Null{}),
		ir.NewRemove(p("$.flag"), ir.Bool(false)),
		ir.NewAdd(p("$['a/b'][0]"), ir.Array{ir.Int(1)}),
	}
	ids, err := b.AppendChanges(ctx, "round/trip", "batch-1", changes)
	require.NoError(t, err)

	entries, err := b.ChangesAfter(ctx, "round/trip", 0)
	require.NoError(t, err)
	require.Len(t, entries, len(changes))

	for i, e := range entries {
		want := changes[i]
		assert.Equal(t, ids[i], e.ID)
		assert.Equal(t, "round/trip", e.State)
		assert.Equal(t, "batch-1", e.Batch)
		assert.Equal(t, want.Op, e.Change.Op)
		assert.True(t, want.Path.Equal(e.Change.Path), "path %d", i)
		assert.Equal(t, want.Key, e.Change.Key)
		assert.Equal(t, want.ValueType, e.Change.ValueType)
		assert.True(t, ir.Equal(want.Value, e.Change.Value), "value %d: %v", i, e.Change.Value)
		assert.True(t, ir.Equal(want.OldValue, e.Change.OldValue), "old value %d: %v", i, e.Change.OldValue)
	}
}

func testChangesAfter(t *testing.T, b store.Backend) {
	ctx := context.Background()

	a1, err := b.AppendChanges(ctx, "a", "b1", []ir.AtomicChange{ir.NewAdd(p("$.x"), ir.Int(1))})
	require.NoError(t, err)
	_, err = b.AppendChanges(ctx, "a/b", "b2", []ir.AtomicChange{ir.NewAdd(p("$.x"), ir.Int(1))})
	require.NoError(t, err)
	a2, err := b.AppendChanges(ctx, "a", "b3", []ir.AtomicChange{ir.NewUpdate(p("$.x"), ir.Int(2), ir.Int(1))})
	require.NoError(t, err)

	entries, err := b.ChangesAfter(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, a1[0], entries[0].ID)
	assert.Equal(t, a2[0], entries[1].ID)

	entries, err = b.ChangesAfter(ctx, "a", a1[0])
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, a2[0], entries[0].ID)

	entries, err = b.ChangesAfter(ctx, "nobody", 0)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func testMaxChangeID(t *testing.T, b store.Backend) {
	ctx := context.Background()

	_, ok, err := b.MaxChangeID(ctx, "s")
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := b.AppendChanges(ctx, "s", "b1", []ir.AtomicChange{
		ir.NewAdd(p("$.a"), ir.Int(1)),
		ir.NewAdd(p("$.b"), ir.Int(2)),
	})
	require.NoError(t, err)
	_, err = b.AppendChanges(ctx, "other", "b2", []ir.AtomicChange{ir.NewAdd(p("$.a"), ir.Int(1))})
	require.NoError(t, err)

	maxID, ok, err := b.MaxChangeID(ctx, "s")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ids[1], maxID)
}

func testLatestSnapshot(t *testing.T, b store.Backend) {
	ctx := context.Background()

	_, ok, err := b.LatestSnapshot(ctx, "s")
	require.NoError(t, err)
	assert.False(t, ok)

	var lastID int64
	for i := int64(1); i <= 3; i++ {
		lastID, err = b.InsertSnapshot(ctx, ir.Snapshot{
			State:     "s",
			Value:     ir.Object{"v": ir.Int(i)},
			ChangeID:  i,
			CreatedAt: epoch.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}
	_, err = b.InsertSnapshot(ctx, ir.Snapshot{State: "other", Value: ir.Object{}, ChangeID: 99, CreatedAt: epoch.Add(time.Hour)})
	require.NoError(t, err)

	snap, ok, err := b.LatestSnapshot(ctx, "s")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, lastID, snap.ID)
	assert.Equal(t, "s", snap.State)
	assert.Equal(t, int64(3), snap.ChangeID)
	assert.True(t, ir.Equal(ir.Object{"v": ir.Int(3)}, snap.Value))
	assert.True(t, epoch.Add(3*time.Second).Equal(snap.CreatedAt))

	all, err := b.ListSnapshots(ctx, "s")
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, s := range all {
		assert.Equal(t, int64(i+1), s.ChangeID)
	}
}

func testLatestSnapshotTie(t *testing.T, b store.Backend) {
	ctx := context.Background()

	for _, v := range []int64{4, 8} {
		_, err := b.InsertSnapshot(ctx, ir.Snapshot{State: "s", Value: ir.Object{}, ChangeID: v, CreatedAt: epoch})
		require.NoError(t, err)
	}
	snap, ok, err := b.LatestSnapshot(ctx, "s")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(8), snap.ChangeID)
}

func testListStates(t *testing.T, b store.Backend) {
	ctx := context.Background()

	states, err := b.ListStates(ctx)
	require.NoError(t, err)
	assert.Empty(t, states)

	_, err = b.AppendChanges(ctx, "zeta", "b1", []ir.AtomicChange{ir.NewAdd(p("$.a"), ir.Int(1))})
	require.NoError(t, err)
	_, err = b.AppendChanges(ctx, "alpha", "b2", []ir.AtomicChange{ir.NewAdd(p("$.a"), ir.Int(1))})
	require.NoError(t, err)
	_, err = b.InsertSnapshot(ctx, ir.Snapshot{State: "mid", Value: ir.Object{}, ChangeID: 1, CreatedAt: epoch})
	require.NoError(t, err)

	states, err = b.ListStates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, states)
}
