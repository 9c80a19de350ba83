// Package store provides SQLite-backed durable storage for change logs and
// snapshots.
//
// Two append-only tables hold every named state:
//   - changes: one row per atomic change, grouped by batch
//   - snapshots: materialized values bound to a change id
//
// Rows are never updated or deleted.
//
// # Ordering
//
//   - Change ids come from AUTOINCREMENT, so they are strictly increasing
//     across all states and never reused.
//   - ChangesAfter returns ORDER BY id ASC; that order is the only valid
//     replay order.
//   - LatestSnapshot picks ORDER BY created_at DESC, id DESC so that two
//     snapshots taken within the same clock tick still resolve to the newer.
//
// # Value encoding
//
// value and oldValue hold canonical JSON. SQL NULL means the value is absent
// (ADD has no old value, REMOVE has no new value); a present JSON null is
// stored as the text "null".
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout: wait for locks (default 5 seconds)
//   - one open connection: SQLite allows a single writer
//
// The driver is selectable: "sqlite3" (github.com/mattn/go-sqlite3, cgo) is
// the default, "sqlite" (modernc.org/sqlite, pure Go) is available through
// WithDriver.
package store
