package store

import (
	"context"
	"fmt"

	"github.com/roach88/diffable/internal/ir"
)

// AppendChanges inserts one changes row per change, in the given order, in
// a single transaction. Either every row is committed or none is.
//
// Returns the assigned ids in the same order. An empty batch is a no-op.
func (s *Store) AppendChanges(ctx context.Context, state, batch string, changes []ir.AtomicChange) ([]int64, error) {
	if len(changes) == 0 {
		return nil, nil
	}
	for i, c := range changes {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("append changes: change %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("append changes: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO changes
		(state, batch, type, key, path, valueType, value, oldValue)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("append changes: prepare: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(changes))
	for i, c := range changes {
		value, err := marshalValue(c.Value)
		if err != nil {
			return nil, fmt.Errorf("append changes: change %d: %w", i, err)
		}
		oldValue, err := marshalValue(c.OldValue)
		if err != nil {
			return nil, fmt.Errorf("append changes: change %d: %w", i, err)
		}

		result, err := stmt.ExecContext(ctx,
			state,
			batch,
			string(c.Op),
			c.Key,
			c.Path.String(),
			c.ValueType,
			value,
			oldValue,
		)
		if err != nil {
			return nil, fmt.Errorf("append changes: insert %d: %w", i, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("append changes: last insert id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("append changes: commit: %w", err)
	}

	return ids, nil
}

// InsertSnapshot stores a snapshot row and returns its id.
// snap.ID is ignored; the value is stored as canonical JSON.
func (s *Store) InsertSnapshot(ctx context.Context, snap ir.Snapshot) (int64, error) {
	value, err := marshalSnapshotValue(snap.Value)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots
		(state, value, changes_id, created_at)
		VALUES (?, ?, ?, ?)
	`,
		snap.State,
		value,
		snap.ChangeID,
		encodeTime(snap.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: last insert id: %w", err)
	}
	return id, nil
}
