package durable

import (
	"context"
	"fmt"

	"github.com/roach88/diffable/internal/ir"
	"github.com/roach88/diffable/internal/replay"
)

// SnapshotCheck is the verification result of one snapshot.
type SnapshotCheck struct {
	ID       int64  `json:"id"`
	ChangeID int64  `json:"changes_id"`
	OK       bool   `json:"ok"`
	Problem  string `json:"problem,omitempty"`
}

// VerifyReport summarizes Verify for one state.
type VerifyReport struct {
	State     string          `json:"state"`
	Changes   int             `json:"changes"`
	Snapshots []SnapshotCheck `json:"snapshots"`
}

// OK reports whether every snapshot passed.
func (r VerifyReport) OK() bool {
	for _, c := range r.Snapshots {
		if !c.OK {
			return false
		}
	}
	return true
}

// Verify checks every snapshot of the state against the log.
//
// initial is the value the state had before its first change, as passed
// to Resume. For each snapshot, the log prefix up to its change id replayed
// over initial must equal the snapshot value, and the snapshot plus the
// entries after it must replay to the same value as the whole log. A log
// that does not replay at all is returned as an error.
func (s *State) Verify(ctx context.Context, initial ir.Object) (VerifyReport, error) {
	report := VerifyReport{State: s.name, Snapshots: []SnapshotCheck{}}

	entries, err := s.backend.ChangesAfter(ctx, s.name, 0)
	if err != nil {
		return report, fmt.Errorf("verify %q: %w", s.name, err)
	}
	report.Changes = len(entries)

	start := fallback(initial)
	full, err := replay.Replay(replay.Sequence(nil, entries), start)
	if err != nil {
		return report, fmt.Errorf("verify %q: full log: %w", s.name, err)
	}

	snaps, err := s.backend.ListSnapshots(ctx, s.name)
	if err != nil {
		return report, fmt.Errorf("verify %q: %w", s.name, err)
	}

	for _, snap := range snaps {
		check := SnapshotCheck{ID: snap.ID, ChangeID: snap.ChangeID}
		check.Problem = checkSnapshot(snap, entries, start, full)
		check.OK = check.Problem == ""
		if !check.OK {
			s.logger.Warn("snapshot inconsistent", "id", snap.ID, "change_id", snap.ChangeID, "problem", check.Problem)
		}
		report.Snapshots = append(report.Snapshots, check)
	}
	return report, nil
}

// checkSnapshot returns a description of the first inconsistency found,
// or "" if snap agrees with the log.
func checkSnapshot(snap ir.Snapshot, entries []ir.ChangeLogEntry, start, full ir.Object) string {
	split := len(entries)
	for i, e := range entries {
		if e.ID > snap.ChangeID {
			split = i
			break
		}
	}
	if split == 0 || entries[split-1].ID != snap.ChangeID {
		return fmt.Sprintf("change id %d is not in the log", snap.ChangeID)
	}

	prefix, err := replay.Replay(replay.Sequence(nil, entries[:split]), start)
	if err != nil {
		return fmt.Sprintf("log prefix: %v", err)
	}
	if !ir.Equal(prefix, snap.Value) {
		return "value differs from the log replayed up to its change id"
	}

	tail, err := replay.Replay(replay.Sequence(&snap, entries[split:]), start)
	if err != nil {
		return fmt.Sprintf("tail: %v", err)
	}
	if !ir.Equal(tail, full) {
		return "snapshot plus tail differs from the full log"
	}
	return ""
}
