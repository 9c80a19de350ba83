package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/diffable/internal/ir"
)

// LatestSnapshot returns the most recently created snapshot for state.
// Ties on created_at are broken by the higher id.
//
// Returns ok=false (and no error) if the state has no snapshot.
func (s *Store) LatestSnapshot(ctx context.Context, state string) (ir.Snapshot, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, state, value, changes_id, created_at
		FROM snapshots
		WHERE state = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, state)

	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Snapshot{}, false, nil
	}
	if err != nil {
		return ir.Snapshot{}, false, fmt.Errorf("latest snapshot: %w", err)
	}
	return snap, true, nil
}

// ChangesAfter returns all changes of state with id > afterID.
// Results are ordered by id ascending, the only valid replay order.
//
// Returns an empty slice (not nil) if no rows match.
func (s *Store) ChangesAfter(ctx context.Context, state string, afterID int64) ([]ir.ChangeLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, state, batch, type, key, path, valueType, value, oldValue
		FROM changes
		WHERE state = ? AND id > ?
		ORDER BY id ASC
	`, state, afterID)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	entries := []ir.ChangeLogEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}

	return entries, nil
}

// MaxChangeID returns the highest change id recorded for state.
// Returns ok=false if the state has no changes.
func (s *Store) MaxChangeID(ctx context.Context, state string) (int64, bool, error) {
	var maxID sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(id) FROM changes WHERE state = ?
	`, state).Scan(&maxID)
	if err != nil {
		return 0, false, fmt.Errorf("max change id: %w", err)
	}
	return maxID.Int64, maxID.Valid, nil
}

// ListStates returns every state name that has changes or snapshots,
// sorted by name.
func (s *Store) ListStates(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT state FROM changes
		UNION
		SELECT state FROM snapshots
		ORDER BY state COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}
	defer rows.Close()

	states := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		states = append(states, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate states: %w", err)
	}
	return states, nil
}

// ListSnapshots returns every snapshot of state, oldest first.
func (s *Store) ListSnapshots(ctx context.Context, state string) ([]ir.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, state, value, changes_id, created_at
		FROM snapshots
		WHERE state = ?
		ORDER BY created_at ASC, id ASC
	`, state)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	snaps := []ir.Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}
