package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/diffable/internal/ir"
	"github.com/roach88/diffable/internal/replay"
)

// ShowResult holds the output of the show command.
type ShowResult struct {
	State string          `json:"state"`
	Value json.RawMessage `json:"value"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <state>",
		Short: "Print the resumed value of a state",
		Long: `Resume a state (newest snapshot plus the log after it) and print the
value as canonical JSON.

Exit codes:
  0 - Value printed
  1 - The log does not replay (corrupt or out-of-order history)
  2 - Command error (unknown state, database not found, etc.)

Examples:
  diffable show cart --db ./diffable.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, cmd, args[0])
		},
	}
}

func runShow(opts *RootOptions, cmd *cobra.Command, name string) error {
	sess, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := requireState(cmd, sess, name); err != nil {
		return err
	}

	st, err := sess.state(name, "")
	if err != nil {
		return err
	}
	value, err := st.Resume(commandContext(cmd), nil)
	if err != nil {
		return resumeError(err)
	}

	data, err := ir.MarshalCanonical(value)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to encode value", err)
	}

	return sess.out.Success(ShowResult{State: name, Value: data}, func(w io.Writer) {
		fmt.Fprintln(w, string(data))
	})
}

// resumeError maps a Resume failure to an exit code: replay failures mean
// the stored history is inconsistent, anything else is a storage error.
func resumeError(err error) error {
	if replay.IsMalformedReplay(err) || replay.IsPathResolution(err) {
		return WrapExitError(ExitFailure, "failed to replay state", err)
	}
	return WrapExitError(ExitCommandError, "failed to read state", err)
}
