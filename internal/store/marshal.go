package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/diffable/internal/ir"
)

// marshalValue converts a change value to canonical JSON TEXT for storage.
// A nil value (absent) becomes SQL NULL; ir.Null becomes the text "null".
func marshalValue(v ir.Value) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal value: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalValue is the inverse of marshalValue.
func unmarshalValue(ns sql.NullString) (ir.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	v, err := ir.UnmarshalValue([]byte(ns.String))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}

// marshalSnapshotValue converts a snapshot's object to canonical JSON TEXT.
func marshalSnapshotValue(obj ir.Object) (string, error) {
	if obj == nil {
		obj = ir.Object{}
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	return string(data), nil
}

// unmarshalSnapshotValue parses canonical JSON TEXT to an object.
// Uses ir.UnmarshalObject which keeps integers exact via json.Number.
func unmarshalSnapshotValue(data string) (ir.Object, error) {
	obj, err := ir.UnmarshalObject([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return obj, nil
}

func encodeTime(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func decodeTime(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntry reads one changes row:
// id, state, batch, type, key, path, valueType, value, oldValue.
func scanEntry(row rowScanner) (ir.ChangeLogEntry, error) {
	var (
		e         ir.ChangeLogEntry
		op, path  string
		key       string
		valueType string
		value     sql.NullString
		oldValue  sql.NullString
	)
	if err := row.Scan(&e.ID, &e.State, &e.Batch, &op, &key, &path, &valueType, &value, &oldValue); err != nil {
		return ir.ChangeLogEntry{}, fmt.Errorf("scan change: %w", err)
	}

	parsedOp, err := ir.ParseOperation(op)
	if err != nil {
		return ir.ChangeLogEntry{}, fmt.Errorf("change %d: %w", e.ID, err)
	}
	parsedPath, err := ir.ParsePath(path)
	if err != nil {
		return ir.ChangeLogEntry{}, fmt.Errorf("change %d: %w", e.ID, err)
	}
	v, err := unmarshalValue(value)
	if err != nil {
		return ir.ChangeLogEntry{}, fmt.Errorf("change %d: %w", e.ID, err)
	}
	old, err := unmarshalValue(oldValue)
	if err != nil {
		return ir.ChangeLogEntry{}, fmt.Errorf("change %d: %w", e.ID, err)
	}

	e.Change = ir.AtomicChange{
		Op:        parsedOp,
		Path:      parsedPath,
		Key:       key,
		ValueType: valueType,
		Value:     v,
		OldValue:  old,
	}
	return e, nil
}

// scanSnapshot reads one snapshots row: id, state, value, changes_id, created_at.
func scanSnapshot(row rowScanner) (ir.Snapshot, error) {
	var (
		snap    ir.Snapshot
		value   string
		created int64
	)
	if err := row.Scan(&snap.ID, &snap.State, &value, &snap.ChangeID, &created); err != nil {
		return ir.Snapshot{}, err
	}
	obj, err := unmarshalSnapshotValue(value)
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("snapshot %d: %w", snap.ID, err)
	}
	snap.Value = obj
	snap.CreatedAt = decodeTime(created)
	return snap, nil
}
