package kvstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/diffable/internal/ir"
)

// changeRecord is the stored form of one change. Value and OldValue hold
// canonical JSON; an empty RawMessage means absent, "null" means JSON null.
type changeRecord struct {
	State     string          `json:"state"`
	Batch     string          `json:"batch"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Path      string          `json:"path"`
	ValueType string          `json:"valueType"`
	Value     json.RawMessage `json:"value,omitempty"`
	OldValue  json.RawMessage `json:"oldValue,omitempty"`
}

type snapshotRecord struct {
	State     string          `json:"state"`
	Value     json.RawMessage `json:"value"`
	ChangeID  int64           `json:"changes_id"`
	CreatedAt int64           `json:"created_at"`
}

func encodeValue(v ir.Value) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return data, nil
}

func decodeValue(raw json.RawMessage) (ir.Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	v, err := ir.UnmarshalValue(raw)
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}

func encodeChange(state, batch string, c ir.AtomicChange) ([]byte, error) {
	value, err := encodeValue(c.Value)
	if err != nil {
		return nil, err
	}
	oldValue, err := encodeValue(c.OldValue)
	if err != nil {
		return nil, err
	}
	return json.Marshal(changeRecord{
		State:     state,
		Batch:     batch,
		Type:      string(c.Op),
		Key:       c.Key,
		Path:      c.Path.String(),
		ValueType: c.ValueType,
		Value:     value,
		OldValue:  oldValue,
	})
}

func decodeChange(id int64, data []byte) (ir.ChangeLogEntry, error) {
	var rec changeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return ir.ChangeLogEntry{}, fmt.Errorf("change %d: %w", id, err)
	}
	op, err := ir.ParseOperation(rec.Type)
	if err != nil {
		return ir.ChangeLogEntry{}, fmt.Errorf("change %d: %w", id, err)
	}
	path, err := ir.ParsePath(rec.Path)
	if err != nil {
		return ir.ChangeLogEntry{}, fmt.Errorf("change %d: %w", id, err)
	}
	value, err := decodeValue(rec.Value)
	if err != nil {
		return ir.ChangeLogEntry{}, fmt.Errorf("change %d: %w", id, err)
	}
	oldValue, err := decodeValue(rec.OldValue)
	if err != nil {
		return ir.ChangeLogEntry{}, fmt.Errorf("change %d: %w", id, err)
	}
	return ir.ChangeLogEntry{
		ID:    id,
		State: rec.State,
		Batch: rec.Batch,
		Change: ir.AtomicChange{
			Op:        op,
			Path:      path,
			Key:       rec.Key,
			ValueType: rec.ValueType,
			Value:     value,
			OldValue:  oldValue,
		},
	}, nil
}

func encodeSnapshot(snap ir.Snapshot) ([]byte, error) {
	obj := snap.Value
	if obj == nil {
		obj = ir.Object{}
	}
	value, err := ir.MarshalCanonical(obj)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return json.Marshal(snapshotRecord{
		State:     snap.State,
		Value:     value,
		ChangeID:  snap.ChangeID,
		CreatedAt: snap.CreatedAt.UTC().UnixNano(),
	})
}

func decodeSnapshot(id int64, data []byte) (ir.Snapshot, error) {
	var rec snapshotRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return ir.Snapshot{}, fmt.Errorf("snapshot %d: %w", id, err)
	}
	obj, err := ir.UnmarshalObject(rec.Value)
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("snapshot %d: %w", id, err)
	}
	return ir.Snapshot{
		ID:        id,
		State:     rec.State,
		Value:     obj,
		ChangeID:  rec.ChangeID,
		CreatedAt: time.Unix(0, rec.CreatedAt).UTC(),
	}, nil
}
