package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
)

// StatesResult holds the output of the states command.
type StatesResult struct {
	States []string `json:"states"`
}

// NewStatesCommand creates the states command.
func NewStatesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "states",
		Short: "List persisted state names",
		Long: `List every state name that has at least one change or snapshot.

Examples:
  diffable states --db ./diffable.db
  diffable states --backend badger --db ./data --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStates(rootOpts, cmd)
		},
	}
}

func runStates(opts *RootOptions, cmd *cobra.Command) error {
	sess, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	states, err := sess.backend.ListStates(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list states", err)
	}

	return sess.out.Success(StatesResult{States: states}, func(w io.Writer) {
		if len(states) == 0 {
			fmt.Fprintln(w, "No states found in database.")
			return
		}
		for _, s := range states {
			fmt.Fprintln(w, s)
		}
	})
}

// requireState fails with ExitCommandError unless name has history.
func requireState(cmd *cobra.Command, sess *session, name string) error {
	states, err := sess.backend.ListStates(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list states", err)
	}
	if !slices.Contains(states, name) {
		return NewExitError(ExitCommandError, fmt.Sprintf("state %q not found", name))
	}
	return nil
}
