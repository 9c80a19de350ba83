package ir

import "time"

// NOTE: These are log/snapshot record types. IDs are assigned by the
// storage backend (auto-increment) and are the only valid replay order.

// ChangeLogEntry is an AtomicChange as recorded in the log for one state.
type ChangeLogEntry struct {
	ID     int64        `json:"id"`    // Strictly increasing per state
	State  string       `json:"state"` // Owning state name
	Batch  string       `json:"batch"` // Groups the entries of one logical write
	Change AtomicChange `json:"change"`
}

// Snapshot is a materialized full value bound to a change id.
//
// Invariant: Value equals the replay, from the state's initial value, of
// every ChangeLogEntry for State with ID <= ChangeID.
type Snapshot struct {
	ID        int64     `json:"id"`
	State     string    `json:"state"`
	Value     Object    `json:"value"`
	ChangeID  int64     `json:"changes_id"`
	CreatedAt time.Time `json:"created_at"`
}
