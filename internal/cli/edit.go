package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/diffable/internal/ir"
	"github.com/roach88/diffable/internal/observe"
)

// EditOptions holds flags shared by set and delete.
type EditOptions struct {
	*RootOptions
	Policy string
}

// EditResult holds the output of set and delete.
type EditResult struct {
	State   string          `json:"state"`
	Path    string          `json:"path"`
	Changes []string        `json:"changes"`
	Value   json.RawMessage `json:"value"`
	Warning string          `json:"warning,omitempty"`
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set <state> <path> <json>",
		Short: "Write a JSON value at a path",
		Long: `Resume a state, write a JSON value at a path as one logical write, and
record the resulting changes. Missing object keys are created; the parent
container must exist. The snapshot policy applies as for any write.

Paths use $ for the root, .key or ['key'] for fields and [i] for indexes.

Examples:
  diffable set cart '$.owner' '"ana"' --db ./diffable.db
  diffable set cart '$.items[0].qty' 3 --db ./diffable.db --policy every-change`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := ir.ParsePath(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid path", err)
			}
			value, err := ir.UnmarshalValue([]byte(args[2]))
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid JSON value", err)
			}
			return runEdit(opts, cmd, args[0], path, func(h *observe.Handle) error {
				return h.Replace(value)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Policy, "policy", "", "snapshot policy override (never|every-change|every:N)")

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <state> <path>",
		Short: "Remove the value at a path",
		Long: `Resume a state and remove an object key or array element. Later array
elements shift down. Deleting a missing key records nothing.

Examples:
  diffable delete cart '$.coupon' --db ./diffable.db
  diffable delete cart '$.items[2]' --db ./diffable.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := ir.ParsePath(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid path", err)
			}
			return runEdit(opts, cmd, args[0], path, func(h *observe.Handle) error {
				return h.Update(func(ir.Value) (ir.Value, error) { return nil, nil })
			})
		},
	}

	cmd.Flags().StringVar(&opts.Policy, "policy", "", "snapshot policy override (never|every-change|every:N)")

	return cmd
}

func runEdit(opts *EditOptions, cmd *cobra.Command, name string, path ir.Path, write func(h *observe.Handle) error) error {
	sess, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	st, err := sess.state(name, opts.Policy)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	value, err := st.Resume(ctx, nil)
	if err != nil {
		return resumeError(err)
	}

	var recorded []ir.AtomicChange
	persist := st.OnUpdate(ctx)
	root := observe.Wrap(value, func(changes []ir.AtomicChange, v ir.Object) error {
		recorded = changes
		return persist(changes, v)
	})

	result := EditResult{State: name, Path: path.String(), Changes: []string{}}
	if err := write(root.At(path)); err != nil {
		var post *observe.PostCommitError
		if !errors.As(err, &post) {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to write %s", path), err)
		}
		sess.logger.Warn("write recorded but snapshot failed", "error", post.Err)
		result.Warning = post.Error()
	}

	for _, c := range recorded {
		result.Changes = append(result.Changes, c.String())
	}
	result.Value = ir.MustMarshalCanonical(root.Value())

	return sess.out.Success(result, func(w io.Writer) {
		if len(recorded) == 0 {
			fmt.Fprintln(w, "No changes.")
			return
		}
		fmt.Fprintf(w, "Recorded %d change(s) for %s:\n", len(recorded), name)
		for _, c := range result.Changes {
			fmt.Fprintf(w, "  %s\n", c)
		}
	})
}
