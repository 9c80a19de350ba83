package ir

import (
	"fmt"
	"strings"
)

// Operation is the kind of an atomic change. The set is closed.
type Operation string

const (
	OpAdd    Operation = "ADD"
	OpUpdate Operation = "UPDATE"
	OpRemove Operation = "REMOVE"
)

// ValidOperations defines the allowed operations.
var ValidOperations = map[Operation]bool{
	OpAdd:    true,
	OpUpdate: true,
	OpRemove: true,
}

// ParseOperation validates a stored operation name.
func ParseOperation(s string) (Operation, error) {
	op := Operation(s)
	if !ValidOperations[op] {
		return "", fmt.Errorf("unknown operation %q", s)
	}
	return op, nil
}

// AtomicChange is one minimal structural delta at Path.
//
// Value is nil for REMOVE; OldValue is nil for ADD. A present JSON null is
// Null{}, never nil.
type AtomicChange struct {
	Op        Operation `json:"type"`
	Path      Path      `json:"path"`
	Key       string    `json:"key"`
	ValueType string    `json:"value_type,omitempty"` // hint only, never load-bearing
	Value     Value     `json:"value,omitempty"`
	OldValue  Value     `json:"old_value,omitempty"`
}

// NewAdd builds an ADD change.
func NewAdd(path Path, value Value) AtomicChange {
	return AtomicChange{
		Op:        OpAdd,
		Path:      path,
		Key:       path.Key(),
		ValueType: TypeName(value),
		Value:     value,
	}
}

// NewUpdate builds an UPDATE change.
func NewUpdate(path Path, value, oldValue Value) AtomicChange {
	return AtomicChange{
		Op:        OpUpdate,
		Path:      path,
		Key:       path.Key(),
		ValueType: TypeName(value),
		Value:     value,
		OldValue:  oldValue,
	}
}

// NewRemove builds a REMOVE change.
func NewRemove(path Path, oldValue Value) AtomicChange {
	return AtomicChange{
		Op:        OpRemove,
		Path:      path,
		Key:       path.Key(),
		ValueType: TypeName(oldValue),
		OldValue:  oldValue,
	}
}

// Validate checks the presence rules for the operation.
func (c AtomicChange) Validate() error {
	if len(c.Path) == 0 {
		return fmt.Errorf("%s change: path must not be the root", c.Op)
	}
	switch c.Op {
	case OpAdd:
		if c.Value == nil {
			return fmt.Errorf("ADD %s: value is required", c.Path)
		}
	case OpUpdate:
		if c.Value == nil {
			return fmt.Errorf("UPDATE %s: value is required", c.Path)
		}
	case OpRemove:
		if c.Value != nil {
			return fmt.Errorf("REMOVE %s: value must be absent", c.Path)
		}
	default:
		return fmt.Errorf("unknown operation %q", c.Op)
	}
	return nil
}

// String renders a compact human-readable form, e.g. "UPDATE $.a.b 1 -> 2".
func (c AtomicChange) String() string {
	var b strings.Builder
	b.WriteString(string(c.Op))
	b.WriteByte(' ')
	b.WriteString(c.Path.String())
	if c.OldValue != nil {
		b.WriteByte(' ')
		b.Write(renderValue(c.OldValue))
	}
	if c.Value != nil {
		if c.OldValue != nil {
			b.WriteString(" ->")
		}
		b.WriteByte(' ')
		b.Write(renderValue(c.Value))
	}
	return b.String()
}

func renderValue(v Value) []byte {
	data, err := MarshalCanonical(v)
	if err != nil {
		return []byte(fmt.Sprintf("<%v>", err))
	}
	return data
}
