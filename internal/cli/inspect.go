package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/diffable/internal/ir"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	After int64
}

// ChangeView is one log entry as printed by inspect.
type ChangeView struct {
	ID        int64           `json:"id"`
	Batch     string          `json:"batch"`
	Type      string          `json:"type"`
	Path      string          `json:"path"`
	Key       string          `json:"key"`
	ValueType string          `json:"valueType"`
	Value     json.RawMessage `json:"value,omitempty"`
	OldValue  json.RawMessage `json:"oldValue,omitempty"`
}

// SnapshotView is one snapshot as printed by inspect.
type SnapshotView struct {
	ID        int64     `json:"id"`
	ChangeID  int64     `json:"changes_id"`
	CreatedAt time.Time `json:"created_at"`
	Size      int       `json:"size"`
}

// InspectResult holds the output of the inspect command.
type InspectResult struct {
	State     string         `json:"state"`
	Changes   []ChangeView   `json:"changes"`
	Snapshots []SnapshotView `json:"snapshots"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <state>",
		Short: "Print the change log and snapshots of a state",
		Long: `Print the change log entries (id, batch, operation, path, values) and
the snapshots of a state.

Examples:
  diffable inspect cart --db ./diffable.db
  diffable inspect cart --db ./diffable.db --after 120 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd, args[0])
		},
	}

	cmd.Flags().Int64Var(&opts.After, "after", 0, "only show changes with a greater id")

	return cmd
}

func runInspect(opts *InspectOptions, cmd *cobra.Command, name string) error {
	sess, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := requireState(cmd, sess, name); err != nil {
		return err
	}

	ctx := commandContext(cmd)
	entries, err := sess.backend.ChangesAfter(ctx, name, opts.After)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read changes", err)
	}
	snaps, err := sess.backend.ListSnapshots(ctx, name)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read snapshots", err)
	}

	result := InspectResult{
		State:     name,
		Changes:   make([]ChangeView, 0, len(entries)),
		Snapshots: make([]SnapshotView, 0, len(snaps)),
	}
	for _, e := range entries {
		result.Changes = append(result.Changes, changeView(e))
	}
	for _, s := range snaps {
		result.Snapshots = append(result.Snapshots, SnapshotView{
			ID:        s.ID,
			ChangeID:  s.ChangeID,
			CreatedAt: s.CreatedAt,
			Size:      len(ir.MustMarshalCanonical(s.Value)),
		})
	}

	return sess.out.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "State: %s\n", name)
		fmt.Fprintf(w, "Changes: %d\n", len(entries))
		for _, e := range entries {
			fmt.Fprintf(w, "  #%d [%s] %s\n", e.ID, e.Batch, e.Change)
		}
		fmt.Fprintf(w, "Snapshots: %d\n", len(snaps))
		for _, s := range result.Snapshots {
			fmt.Fprintf(w, "  #%d changes_id=%d created_at=%s size=%d\n",
				s.ID, s.ChangeID, s.CreatedAt.Format(time.RFC3339Nano), s.Size)
		}
	})
}

func changeView(e ir.ChangeLogEntry) ChangeView {
	v := ChangeView{
		ID:        e.ID,
		Batch:     e.Batch,
		Type:      string(e.Change.Op),
		Path:      e.Change.Path.String(),
		Key:       e.Change.Key,
		ValueType: e.Change.ValueType,
	}
	if e.Change.Value != nil {
		v.Value = ir.MustMarshalCanonical(e.Change.Value)
	}
	if e.Change.OldValue != nil {
		v.OldValue = ir.MustMarshalCanonical(e.Change.OldValue)
	}
	return v
}
