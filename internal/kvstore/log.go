package kvstore

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/diffable/internal/ir"
)

// AppendChanges writes one record per change and advances the id counter
// in a single transaction. Returns the assigned ids in order.
func (s *Store) AppendChanges(ctx context.Context, state, batch string, changes []ir.AtomicChange) ([]int64, error) {
	if len(changes) == 0 {
		return nil, nil
	}
	for i, c := range changes {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("append changes: change %d: %w", i, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("append changes: %w", err)
	}

	ids := make([]int64, 0, len(changes))
	err := s.db.Update(func(txn *badger.Txn) error {
		ids = ids[:0]
		for i, c := range changes {
			id, err := nextCounter(txn, seqKey)
			if err != nil {
				return err
			}
			data, err := encodeChange(state, batch, c)
			if err != nil {
				return fmt.Errorf("change %d: %w", i, err)
			}
			if err := txn.Set(changeKey(state, id), data); err != nil {
				return fmt.Errorf("change %d: %w", i, err)
			}
			ids = append(ids, id)
		}
		return txn.Set(stateKey(state), []byte{})
	})
	if err != nil {
		return nil, fmt.Errorf("append changes: %w", err)
	}
	return ids, nil
}

// InsertSnapshot stores snap under a new snapshot id.
func (s *Store) InsertSnapshot(ctx context.Context, snap ir.Snapshot) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	data, err := encodeSnapshot(snap)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}

	var id int64
	err = s.db.Update(func(txn *badger.Txn) error {
		var err error
		id, err = nextCounter(txn, snapSeqKey)
		if err != nil {
			return err
		}
		if err := txn.Set(snapshotKey(snap.State, snap.CreatedAt, id), data); err != nil {
			return err
		}
		return txn.Set(stateKey(snap.State), []byte{})
	})
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	return id, nil
}

// LatestSnapshot returns the snapshot with the greatest (created_at, id).
func (s *Store) LatestSnapshot(ctx context.Context, state string) (ir.Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return ir.Snapshot{}, false, fmt.Errorf("latest snapshot: %w", err)
	}

	var (
		snap  ir.Snapshot
		found bool
	)
	prefix := snapshotStatePrefix(state)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(append(bytes.Clone(prefix), 0xFF))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		item := it.Item()
		id, err := parseID(item.Key())
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		snap, err = decodeSnapshot(id, data)
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return ir.Snapshot{}, false, fmt.Errorf("latest snapshot: %w", err)
	}
	return snap, found, nil
}

// ChangesAfter returns all changes of state with id > afterID, ascending.
func (s *Store) ChangesAfter(ctx context.Context, state string, afterID int64) ([]ir.ChangeLogEntry, error) {
	entries := []ir.ChangeLogEntry{}
	prefix := changeStatePrefix(state)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(changeKey(state, afterID+1)); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			id, err := parseID(item.Key())
			if err != nil {
				return err
			}
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			e, err := decodeChange(id, data)
			if err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("changes after %d: %w", afterID, err)
	}
	return entries, nil
}

// MaxChangeID returns the highest change id of state.
func (s *Store) MaxChangeID(ctx context.Context, state string) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, fmt.Errorf("max change id: %w", err)
	}

	var (
		maxID int64
		found bool
	)
	prefix := changeStatePrefix(state)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(append(bytes.Clone(prefix), 0xFF))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		id, err := parseID(it.Item().Key())
		if err != nil {
			return err
		}
		maxID, found = id, true
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("max change id: %w", err)
	}
	return maxID, found, nil
}

// ListStates returns every registered state name, sorted.
func (s *Store) ListStates(ctx context.Context) ([]string, error) {
	states := []string{}
	prefix := []byte(statePrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			name, err := stateFromKey(it.Item().Key())
			if err != nil {
				return err
			}
			states = append(states, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}
	// Key order is escaped-name order.
	slices.Sort(states)
	return states, nil
}

// ListSnapshots returns every snapshot of state, oldest first.
func (s *Store) ListSnapshots(ctx context.Context, state string) ([]ir.Snapshot, error) {
	snaps := []ir.Snapshot{}
	prefix := snapshotStatePrefix(state)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			id, err := parseID(item.Key())
			if err != nil {
				return err
			}
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			snap, err := decodeSnapshot(id, data)
			if err != nil {
				return err
			}
			snaps = append(snaps, snap)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snaps, nil
}
