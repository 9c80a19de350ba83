// Package replay rebuilds a value from an optional snapshot and an ordered
// tail of logged changes.
//
// Replay is pure: it performs no I/O, never modifies its inputs, and
// produces identical output for identical input. That determinism is what
// makes replaying a snapshot plus the changes after it equivalent to
// replaying the whole log from the initial value.
//
// Input is a sequence of Actions, a closed set of two variants:
//
//	SnapshotAction  a materialized value; only valid as the first action
//	ChangeAction    one logged atomic change
//
// Changes are applied in the order given. Each change is checked against
// the value it is applied to: ADD requires the target to be absent, UPDATE
// and REMOVE require it to be present and equal to the recorded old value.
// Any mismatch is reported as a path resolution error instead of being
// silently tolerated.
package replay
