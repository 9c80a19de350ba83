package replay

import (
	"errors"
	"fmt"

	"github.com/roach88/diffable/internal/ir"
)

// Action is one element of a replay sequence.
//
// This is a sealed interface - only types in this package implement it.
type Action interface {
	replayAction()
}

// SnapshotAction seeds the replay with a materialized value.
type SnapshotAction struct {
	Snapshot ir.Snapshot
}

// ChangeAction applies one logged change.
type ChangeAction struct {
	Entry ir.ChangeLogEntry
}

func (SnapshotAction) replayAction() {}
func (ChangeAction) replayAction()   {}

// Sequence builds the action sequence for a resume: the snapshot (if any)
// followed by the log entries after it.
func Sequence(snap *ir.Snapshot, entries []ir.ChangeLogEntry) []Action {
	actions := make([]Action, 0, len(entries)+1)
	if snap != nil {
		actions = append(actions, SnapshotAction{Snapshot: *snap})
	}
	for _, e := range entries {
		actions = append(actions, ChangeAction{Entry: e})
	}
	return actions
}

// Changes wraps bare changes as actions without log ids.
func Changes(changes []ir.AtomicChange) []Action {
	actions := make([]Action, len(changes))
	for i, c := range changes {
		actions[i] = ChangeAction{Entry: ir.ChangeLogEntry{Change: c}}
	}
	return actions
}

// Replay rebuilds a value from actions.
//
// When the first action is a SnapshotAction its value is the starting
// point; otherwise fallback is. Neither is modified. Entries carrying log
// ids must be in strictly ascending id order and, after a snapshot, must
// come after the snapshot's change id. An empty sequence returns a copy of
// the starting value.
func Replay(actions []Action, fallback ir.Object) (ir.Object, error) {
	start := fallback
	var lastID int64

	for i, a := range actions {
		switch act := a.(type) {
		case SnapshotAction:
			if i != 0 {
				return nil, malformed(i, "snapshot marker must be the first action")
			}
			start = act.Snapshot.Value
			lastID = act.Snapshot.ChangeID
		case ChangeAction:
			id := act.Entry.ID
			if id == 0 {
				continue
			}
			if id <= lastID {
				return nil, &Error{
					Code:     ErrCodeMalformedReplay,
					Message:  fmt.Sprintf("change id %d does not follow %d", id, lastID),
					Index:    i,
					ChangeID: id,
				}
			}
			lastID = id
		case nil:
			return nil, malformed(i, "nil action")
		default:
			return nil, malformed(i, "unknown action %T", a)
		}
	}

	value := ir.CloneObject(start)
	if value == nil {
		value = ir.Object{}
	}
	for i, a := range actions {
		act, ok := a.(ChangeAction)
		if !ok {
			continue
		}
		next, err := apply(value, act.Entry.Change, i)
		if err != nil {
			var re *Error
			if errors.As(err, &re) {
				re.ChangeID = act.Entry.ID
			}
			return nil, err
		}
		value = next
	}
	return value, nil
}

// Apply replays bare changes over a copy of base.
func Apply(base ir.Object, changes ...ir.AtomicChange) (ir.Object, error) {
	return Replay(Changes(changes), base)
}

// apply mutates value in place and returns the resulting root.
func apply(value ir.Object, c ir.AtomicChange, index int) (ir.Object, error) {
	if err := c.Validate(); err != nil {
		return nil, malformed(index, "invalid change: %v", err)
	}
	path := c.Path.String()

	parentPath := c.Path.Parent()
	parent, ok := ir.Lookup(value, parentPath)
	if !ok {
		return nil, unresolved(index, path, "parent %s does not exist", parentPath)
	}
	last, _ := c.Path.Last()
	current, exists := ir.Lookup(value, c.Path)

	switch c.Op {
	case ir.OpAdd:
		if exists && !last.IsIndex {
			return nil, unresolved(index, path, "ADD target already exists")
		}
		return insert(value, parentPath, parent, last, ir.Clone(c.Value), index, path)

	case ir.OpUpdate:
		if !exists {
			return nil, unresolved(index, path, "UPDATE target does not exist")
		}
		if c.OldValue != nil && !ir.Equal(current, c.OldValue) {
			return nil, unresolved(index, path, "UPDATE old value does not match current value")
		}
		return replace(value, parent, last, ir.Clone(c.Value), index, path)

	case ir.OpRemove:
		if !exists {
			return nil, unresolved(index, path, "REMOVE target does not exist")
		}
		if c.OldValue != nil && !ir.Equal(current, c.OldValue) {
			return nil, unresolved(index, path, "REMOVE old value does not match current value")
		}
		return removeAt(value, parentPath, parent, last, index, path)
	}
	return nil, malformed(index, "unknown operation %q", c.Op)
}

func insert(root ir.Object, parentPath ir.Path, parent ir.Value, last ir.Segment, v ir.Value, index int, path string) (ir.Object, error) {
	switch p := parent.(type) {
	case ir.Object:
		if last.IsIndex {
			return nil, unresolved(index, path, "index into an object")
		}
		p[last.Key] = v
		return root, nil
	case ir.Array:
		if !last.IsIndex {
			return nil, unresolved(index, path, "key into an array")
		}
		if last.Index > len(p) {
			return nil, unresolved(index, path, "ADD index %d beyond array length %d", last.Index, len(p))
		}
		grown := make(ir.Array, 0, len(p)+1)
		grown = append(grown, p[:last.Index]...)
		grown = append(grown, v)
		grown = append(grown, p[last.Index:]...)
		return setContainer(root, parentPath, grown, index, path)
	}
	return nil, unresolved(index, path, "parent is %s, not a container", ir.TypeName(parent))
}

func replace(root ir.Object, parent ir.Value, last ir.Segment, v ir.Value, index int, path string) (ir.Object, error) {
	switch p := parent.(type) {
	case ir.Object:
		p[last.Key] = v
	case ir.Array:
		p[last.Index] = v
	default:
		return nil, unresolved(index, path, "parent is %s, not a container", ir.TypeName(parent))
	}
	return root, nil
}

func removeAt(root ir.Object, parentPath ir.Path, parent ir.Value, last ir.Segment, index int, path string) (ir.Object, error) {
	switch p := parent.(type) {
	case ir.Object:
		delete(p, last.Key)
		return root, nil
	case ir.Array:
		shrunk := make(ir.Array, 0, len(p)-1)
		shrunk = append(shrunk, p[:last.Index]...)
		shrunk = append(shrunk, p[last.Index+1:]...)
		return setContainer(root, parentPath, shrunk, index, path)
	}
	return nil, unresolved(index, path, "parent is %s, not a container", ir.TypeName(parent))
}

// setContainer stores a rebuilt array at containerPath. Arrays are slices,
// so a resized array must be written back into its own parent.
func setContainer(root ir.Object, containerPath ir.Path, arr ir.Array, index int, path string) (ir.Object, error) {
	last, ok := containerPath.Last()
	if !ok {
		return nil, unresolved(index, path, "root is not an array")
	}
	holder, _ := ir.Lookup(root, containerPath.Parent())
	switch h := holder.(type) {
	case ir.Object:
		h[last.Key] = arr
	case ir.Array:
		h[last.Index] = arr
	default:
		return nil, unresolved(index, path, "cannot resolve %s", containerPath)
	}
	return root, nil
}
