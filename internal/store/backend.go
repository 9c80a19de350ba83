package store

import (
	"context"

	"github.com/roach88/diffable/internal/ir"
)

// Backend is the storage primitive a durable state runs on: an append-only
// change log and an insert-only snapshot table, partitioned by state name.
//
// Implementations must make AppendChanges all-or-nothing and must assign
// ids that strictly increase within a state.
type Backend interface {
	// AppendChanges inserts one entry per change, in order, in a single
	// transaction, and returns the assigned ids.
	AppendChanges(ctx context.Context, state, batch string, changes []ir.AtomicChange) ([]int64, error)

	// LatestSnapshot returns the most recently created snapshot of state.
	LatestSnapshot(ctx context.Context, state string) (ir.Snapshot, bool, error)

	// ChangesAfter returns the entries of state with id > afterID, ascending.
	ChangesAfter(ctx context.Context, state string, afterID int64) ([]ir.ChangeLogEntry, error)

	// MaxChangeID returns the highest change id of state.
	MaxChangeID(ctx context.Context, state string) (int64, bool, error)

	// InsertSnapshot stores snap and returns its id.
	InsertSnapshot(ctx context.Context, snap ir.Snapshot) (int64, error)

	// ListStates returns every state name with at least one change or
	// snapshot, sorted.
	ListStates(ctx context.Context) ([]string, error)

	// ListSnapshots returns every snapshot of state in creation order.
	ListSnapshots(ctx context.Context, state string) ([]ir.Snapshot, error)

	Close() error
}

var _ Backend = (*Store)(nil)
