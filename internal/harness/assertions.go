package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/diffable/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual: %s", e.Actual)
	return buf.String()
}

func (h *Harness) check(ctx context.Context, a Assertion) error {
	switch a.Type {
	case AssertFinalValue:
		return h.assertFinalValue(a)
	case AssertSnapshotIDs:
		return h.assertSnapshotIDs(ctx, a)
	case AssertChangeCount:
		return h.assertChangeCount(ctx, a)
	case AssertVerify:
		return h.assertVerify(ctx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertFinalValue compares the value at a.Path (default: the root) of the
// final handle with a.Expect.
func (h *Harness) assertFinalValue(a Assertion) error {
	want, err := ir.FromGo(a.Expect)
	if err != nil {
		return fmt.Errorf("final_value: expect: %w", err)
	}
	want = ir.Normalize(want)

	path := ir.Root
	if a.Path != "" {
		if path, err = ir.ParsePath(a.Path); err != nil {
			return fmt.Errorf("final_value: %w", err)
		}
	}

	got, ok := ir.Lookup(h.value(), path)
	if !ok {
		return &AssertionError{
			Type:     AssertFinalValue,
			Expected: fmt.Sprintf("%s = %s", path, render(want)),
			Actual:   fmt.Sprintf("%s does not exist", path),
		}
	}
	if !ir.Equal(got, want) {
		return &AssertionError{
			Type:     AssertFinalValue,
			Expected: fmt.Sprintf("%s = %s", path, render(want)),
			Actual:   fmt.Sprintf("%s = %s", path, render(got)),
		}
	}
	return nil
}

// assertSnapshotIDs compares the change ids of the stored snapshots,
// oldest first.
func (h *Harness) assertSnapshotIDs(ctx context.Context, a Assertion) error {
	snaps, err := h.backend.ListSnapshots(ctx, h.state.Name())
	if err != nil {
		return err
	}
	got := make([]int64, len(snaps))
	for i, s := range snaps {
		got[i] = s.ChangeID
	}
	if !slices.Equal(got, a.ChangeIDs) {
		return &AssertionError{
			Type:     AssertSnapshotIDs,
			Expected: fmt.Sprintf("%v", a.ChangeIDs),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

func (h *Harness) assertChangeCount(ctx context.Context, a Assertion) error {
	entries, err := h.backend.ChangesAfter(ctx, h.state.Name(), 0)
	if err != nil {
		return err
	}
	if len(entries) != *a.Count {
		return &AssertionError{
			Type:     AssertChangeCount,
			Expected: fmt.Sprintf("%d change(s)", *a.Count),
			Actual:   fmt.Sprintf("%d change(s)", len(entries)),
		}
	}
	return nil
}

// assertVerify checks every snapshot against the log and the final handle
// against a fresh resume.
func (h *Harness) assertVerify(ctx context.Context) error {
	report, err := h.state.Verify(ctx, h.initial)
	if err != nil {
		return err
	}
	for _, c := range report.Snapshots {
		if !c.OK {
			return &AssertionError{
				Type:     AssertVerify,
				Expected: fmt.Sprintf("snapshot #%d consistent with the log", c.ID),
				Actual:   c.Problem,
			}
		}
	}

	resumed, err := h.state.Resume(ctx, h.initial)
	if err != nil {
		return err
	}
	if !ir.Equal(resumed, h.value()) {
		return &AssertionError{
			Type:     AssertVerify,
			Expected: fmt.Sprintf("resume = %s", render(h.value())),
			Actual:   fmt.Sprintf("resume = %s", render(resumed)),
		}
	}
	return nil
}

func render(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}
