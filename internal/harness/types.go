package harness

import (
	"time"

	"github.com/roach88/diffable/internal/ir"
)

// Trace event types.
const (
	EventOpen     = "open"
	EventAppend   = "append"
	EventSnapshot = "snapshot"
	EventError    = "error"
)

// TraceEvent is one observable effect of a scenario run, in the order it
// happened: a handle being opened, a batch reaching the log, a snapshot
// being stored, or an expected error.
type TraceEvent struct {
	Seq      int64               `json:"seq"`
	Type     string              `json:"type"`
	Step     int                 `json:"step,omitempty"`
	Batch    string              `json:"batch,omitempty"`
	Changes  []ir.ChangeLogEntry `json:"changes,omitempty"`
	Snapshot *ir.Snapshot        `json:"snapshot,omitempty"`
	Value    ir.Object           `json:"value,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// toValue renders the event as the object written to golden files.
func (e TraceEvent) toValue() ir.Object {
	obj := ir.Object{
		"seq":  ir.Int(e.Seq),
		"type": ir.String(e.Type),
	}
	switch e.Type {
	case EventOpen:
		obj["value"] = valueOrEmpty(e.Value)
	case EventAppend:
		obj["batch"] = ir.String(e.Batch)
		changes := make(ir.Array, len(e.Changes))
		for i, entry := range e.Changes {
			changes[i] = changeValue(entry)
		}
		obj["changes"] = changes
	case EventSnapshot:
		if s := e.Snapshot; s != nil {
			obj["id"] = ir.Int(s.ID)
			obj["changes_id"] = ir.Int(s.ChangeID)
			obj["created_at"] = ir.String(s.CreatedAt.UTC().Format(time.RFC3339))
			obj["value"] = valueOrEmpty(s.Value)
		}
	case EventError:
		obj["step"] = ir.Int(e.Step)
		obj["error"] = ir.String(e.Error)
	}
	return obj
}

func changeValue(e ir.ChangeLogEntry) ir.Object {
	obj := ir.Object{
		"id":   ir.Int(e.ID),
		"op":   ir.String(string(e.Change.Op)),
		"path": ir.String(e.Change.Path.String()),
	}
	if e.Change.Value != nil {
		obj["value"] = e.Change.Value
	}
	if e.Change.OldValue != nil {
		obj["old"] = e.Change.OldValue
	}
	return obj
}

func valueOrEmpty(v ir.Object) ir.Object {
	if v == nil {
		return ir.Object{}
	}
	return v
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step behaved as declared and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace holds every event in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds step and assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the value of the last opened handle after the last step.
	Final ir.Object `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) record(e TraceEvent) {
	e.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, e)
}
