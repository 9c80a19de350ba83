package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/diffable/internal/durable"
)

// SnapshotResult holds the output of the snapshot command.
type SnapshotResult struct {
	State    string `json:"state"`
	ID       int64  `json:"id"`
	ChangeID int64  `json:"changes_id"`
}

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <state>",
		Short: "Materialize a snapshot now",
		Long: `Resume a state and store its value as a snapshot bound to the newest
change id, regardless of the snapshot policy.

Examples:
  diffable snapshot cart --db ./diffable.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(rootOpts, cmd, args[0])
		},
	}
}

func runSnapshot(opts *RootOptions, cmd *cobra.Command, name string) error {
	sess, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	st, err := sess.state(name, "")
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	value, err := st.Resume(ctx, nil)
	if err != nil {
		return resumeError(err)
	}

	snap, err := st.Snapshot(ctx, value)
	if errors.Is(err, durable.ErrInvariantViolation) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("state %q has no changes to snapshot", name), err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to store snapshot", err)
	}

	result := SnapshotResult{State: name, ID: snap.ID, ChangeID: snap.ChangeID}
	return sess.out.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "Snapshot #%d of %s bound to change %d\n", snap.ID, name, snap.ChangeID)
	})
}
