package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/diffable/internal/durable"
	"github.com/roach88/diffable/internal/ir"
	"github.com/roach88/diffable/internal/observe"
	"github.com/roach88/diffable/internal/store"
	"github.com/roach88/diffable/internal/testutil"
)

// recordingBackend forwards to a real backend and traces every successful
// append and snapshot insert.
type recordingBackend struct {
	store.Backend
	result *Result
}

func (b *recordingBackend) AppendChanges(ctx context.Context, state, batch string, changes []ir.AtomicChange) ([]int64, error) {
	ids, err := b.Backend.AppendChanges(ctx, state, batch, changes)
	if err != nil {
		return nil, err
	}
	entries := make([]ir.ChangeLogEntry, len(changes))
	for i, c := range changes {
		entries[i] = ir.ChangeLogEntry{ID: ids[i], State: state, Batch: batch, Change: c}
	}
	b.result.record(TraceEvent{Type: EventAppend, Batch: batch, Changes: entries})
	return ids, nil
}

func (b *recordingBackend) InsertSnapshot(ctx context.Context, snap ir.Snapshot) (int64, error) {
	id, err := b.Backend.InsertSnapshot(ctx, snap)
	if err != nil {
		return 0, err
	}
	snap.ID = id
	snap.Value = ir.CloneObject(snap.Value)
	b.result.record(TraceEvent{Type: EventSnapshot, Snapshot: &snap})
	return id, nil
}

// Harness executes one scenario.
type Harness struct {
	backend *recordingBackend
	state   *durable.State
	initial ir.Object
	handle  *observe.Handle
	result  *Result
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a deterministic
// clock and sequential batch ids, so two runs of the same scenario
// produce identical traces.
//
// The returned error is reserved for infrastructure failures. A step that
// fails unexpectedly or an assertion that does not hold is reported in the
// result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	policy := durable.DefaultPolicy
	if scenario.Policy != "" {
		policy, err = durable.ParsePolicy(scenario.Policy)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
	}

	initial := ir.Object{}
	if scenario.Initial != nil {
		v, err := ir.FromGo(scenario.Initial)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: initial: %w", scenario.Name, err)
		}
		initial = v.(ir.Object)
	}

	result := NewResult()
	backend := &recordingBackend{Backend: st, result: result}
	h := &Harness{
		backend: backend,
		state: durable.New(backend, scenario.State,
			durable.WithPolicy(policy),
			durable.WithClock(testutil.NewDeterministicClock().Now),
			durable.WithBatchIDs(testutil.NewSequentialBatchIDs(scenario.State)),
			// Suppress logs in tests
			durable.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		),
		initial: initial,
		result:  result,
	}

	ctx := context.Background()
	if err := h.open(ctx); err != nil {
		return nil, err
	}

	for i, step := range scenario.Steps {
		err := h.execute(ctx, step)
		switch {
		case err != nil && step.Error == "":
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Op, err))
		case err != nil && !strings.Contains(err.Error(), step.Error):
			result.AddError(fmt.Sprintf("steps[%d] %s: error %q does not contain %q", i, step.Op, err, step.Error))
		case err != nil:
			result.record(TraceEvent{Type: EventError, Step: i, Error: err.Error()})
		case step.Error != "":
			result.AddError(fmt.Sprintf("steps[%d] %s: expected error containing %q", i, step.Op, step.Error))
		}
	}

	result.Final = h.value()

	for i, a := range scenario.Assertions {
		if err := h.check(ctx, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result, nil
}

// open resumes the state over the scenario's initial value into a new handle.
func (h *Harness) open(ctx context.Context) error {
	handle, err := h.state.Open(ctx, h.initial)
	if err != nil {
		return fmt.Errorf("open %s: %w", h.state.Name(), err)
	}
	h.handle = handle
	h.result.record(TraceEvent{Type: EventOpen, Value: h.value()})
	return nil
}

func (h *Harness) value() ir.Object {
	obj, _ := h.handle.Object()
	return obj
}

func (h *Harness) execute(ctx context.Context, step Step) error {
	switch step.Op {
	case OpSnapshot:
		_, err := h.state.Snapshot(ctx, h.value())
		return err
	case OpReopen:
		return h.open(ctx)
	}

	path, err := ir.ParsePath(step.Path)
	if err != nil {
		return err
	}

	switch step.Op {
	case OpSet:
		v, err := ir.FromGo(step.Value)
		if err != nil {
			return err
		}
		return h.handle.At(path).Replace(v)
	case OpDelete:
		return h.handle.At(path).Update(func(ir.Value) (ir.Value, error) {
			return nil, nil
		})
	case OpAppend:
		v, err := ir.FromGo(step.Value)
		if err != nil {
			return err
		}
		return h.handle.At(path).Append(v)
	case OpRemoveIndex:
		return h.handle.At(path).RemoveIndex(*step.Index)
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}
