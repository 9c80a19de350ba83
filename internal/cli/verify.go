package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/diffable/internal/durable"
)

// VerifyStateResult is the verification result of one state.
type VerifyStateResult struct {
	durable.VerifyReport
	Error string `json:"error,omitempty"`
}

// VerifyResult holds the output of the verify command.
type VerifyResult struct {
	States     []VerifyStateResult `json:"states"`
	Consistent bool                `json:"consistent"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [state...]",
		Short: "Check snapshots against the change log",
		Long: `Replay the whole change log of each state and check that every snapshot
equals the log replayed up to its change id, and that the snapshot plus
the entries after it replays to the same value as the whole log.

With no arguments every state is verified.

Exit codes:
  0 - All states consistent
  1 - An inconsistent snapshot or an unreplayable log was found
  2 - Command error (database not found, etc.)

Examples:
  diffable verify --db ./diffable.db
  diffable verify cart orders --db ./diffable.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, cmd, args)
		},
	}
}

func runVerify(opts *RootOptions, cmd *cobra.Command, names []string) error {
	sess, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := commandContext(cmd)
	if len(names) == 0 {
		names, err = sess.backend.ListStates(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list states", err)
		}
	}

	result := VerifyResult{States: make([]VerifyStateResult, 0, len(names)), Consistent: true}
	for _, name := range names {
		st, err := sess.state(name, "")
		if err != nil {
			return err
		}
		report, err := st.Verify(ctx, nil)
		r := VerifyStateResult{VerifyReport: report}
		if err != nil {
			r.Error = err.Error()
		}
		if err != nil || !report.OK() {
			result.Consistent = false
		}
		result.States = append(result.States, r)
	}

	text := func(w io.Writer) {
		for _, r := range result.States {
			status := "✓"
			if r.Error != "" || !r.OK() {
				status = "✗"
			}
			fmt.Fprintf(w, "%s %s: %d change(s), %d snapshot(s)\n", status, r.State, r.Changes, len(r.Snapshots))
			if r.Error != "" {
				fmt.Fprintf(w, "  %s\n", r.Error)
			}
			for _, c := range r.Snapshots {
				if !c.OK {
					fmt.Fprintf(w, "  snapshot #%d (changes_id=%d): %s\n", c.ID, c.ChangeID, c.Problem)
				}
			}
		}
	}

	if result.Consistent {
		return sess.out.Success(result, text)
	}
	if err := sess.out.Failure(CodeVerify, "verification failed", result, text); err != nil {
		return err
	}
	return NewExitError(ExitFailure, "verification failed")
}
