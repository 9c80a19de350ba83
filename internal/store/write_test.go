package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/diffable/internal/ir"
)

func TestAppendChanges_AssignsAscendingIDs(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		ids, err := s.AppendChanges(ctx, "cart", "b1", []ir.AtomicChange{
			add("$.a", ir.Int(1)),
			add("$.b", ir.String("x")),
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, ids)

		ids, err = s.AppendChanges(ctx, "cart", "b2", []ir.AtomicChange{update("$.a", ir.Int(2), ir.Int(1))})
		require.NoError(t, err)
		assert.Equal(t, []int64{3}, ids)
	})
}

func TestAppendChanges_EmptyBatchIsNoOp(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	ids, err := s.AppendChanges(ctx, "cart", "b1", nil)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, ok, err := s.MaxChangeID(ctx, "cart")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAppendChanges_StoresColumns(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	_, err := s.AppendChanges(ctx, "cart", "batch-1", []ir.AtomicChange{
		update("$.a.b", ir.Int(2), ir.Int(1)),
		add("$.none", ir.Null{}),
		remove("$.gone", ir.Bool(false)),
	})
	require.NoError(t, err)

	type row struct {
		state, batch, op, key, path, valueType string
		value, oldValue                        sql.NullString
	}
	rows, err := s.db.Query(`
		SELECT state, batch, type, key, path, valueType, value, oldValue
		FROM changes ORDER BY id
	`)
	require.NoError(t, err)
	defer rows.Close()

	var got []row
	for rows.Next() {
		var r row
		require.NoError(t, rows.Scan(&r.state, &r.batch, &r.op, &r.key, &r.path, &r.valueType, &r.value, &r.oldValue))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())
	require.Len(t, got, 3)

	assert.Equal(t, row{"cart", "batch-1", "UPDATE", "b", "$.a.b", "Number",
		sql.NullString{String: "2", Valid: true}, sql.NullString{String: "1", Valid: true}}, got[0])

	// A present JSON null is text; an absent old value is SQL NULL.
	assert.Equal(t, sql.NullString{String: "null", Valid: true}, got[1].value)
	assert.False(t, got[1].oldValue.Valid)
	assert.Equal(t, "Null", got[1].valueType)

	// Falsy values survive.
	assert.False(t, got[2].value.Valid)
	assert.Equal(t, sql.NullString{String: "false", Valid: true}, got[2].oldValue)
}

func TestAppendChanges_AllOrNothing(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	_, err := s.AppendChanges(ctx, "cart", "b1", []ir.AtomicChange{
		add("$.a", ir.Int(1)),
		{Op: ir.OpAdd, Path: ir.MustParsePath("$.b")}, // ADD without a value
	})
	require.Error(t, err)

	entries, err := s.ChangesAfter(ctx, "cart", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAppendChanges_CanceledContextWritesNothing(t *testing.T) {
	s := OpenMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.AppendChanges(ctx, "cart", "b1", []ir.AtomicChange{add("$.a", ir.Int(1))})
	require.Error(t, err)

	entries, err := s.ChangesAfter(context.Background(), "cart", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInsertSnapshot(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		id, err := s.InsertSnapshot(ctx, ir.Snapshot{
			State:     "cart",
			Value:     ir.Object{"b": ir.Int(2), "a": ir.Array{ir.Float(0.5)}},
			ChangeID:  7,
			CreatedAt: testEpoch,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)

		var value string
		var created int64
		require.NoError(t, s.db.QueryRow("SELECT value, created_at FROM snapshots WHERE id = ?", id).Scan(&value, &created))
		assert.Equal(t, `{"a":[0.5],"b":2}`, value)
		assert.Equal(t, testEpoch.UnixNano(), created)
	})
}
