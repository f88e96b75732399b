package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ashc/internal/ir"
	"github.com/roach88/ashc/internal/store"
)

// EvidenceOptions holds flags for the evidence command.
type EvidenceOptions struct {
	*RootOptions
	Database string
	Runs     bool
}

// EvidenceResult is the JSON payload of the evidence command.
type EvidenceResult struct {
	Session store.SessionSummary `json:"session"`
	Runs    []ir.Run             `json:"runs,omitempty"`
}

// NewEvidenceCommand creates the evidence command.
func NewEvidenceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvidenceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "evidence [session-id]",
		Short: "Show stored compile sessions",
		Long: `Show the stored verdict of a compile session, or list every session
when no id is given.

Examples:
  ashc evidence --db ./ashc.db
  ashc evidence early_pass@nightly --db ./ashc.db --runs
  ashc evidence early_pass@nightly --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runListSessions(opts, cmd)
			}
			return runEvidence(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database (default $ASHC_DB_PATH)")
	cmd.Flags().BoolVar(&opts.Runs, "runs", false, "include every run")

	return cmd
}

func runEvidence(opts *EvidenceOptions, sessionID string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd)

	st, err := openExistingStore(opts.RootOptions, opts.Database)
	if err != nil {
		return f.Fail(ErrCodeNoDatabase, err)
	}
	defer st.Close()

	sum, err := st.ReadSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return f.Fail(ErrCodeNotFound, NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", sessionID)))
	}
	if err != nil {
		return f.Fail(ErrCodeStore, WrapExitError(ExitFailure, "failed to read session", err))
	}

	result := EvidenceResult{Session: sum}
	if opts.Runs {
		ev, err := st.ReadEvidence(ctx, sessionID)
		if err != nil {
			return f.Fail(ErrCodeStore, WrapExitError(ExitFailure, "failed to read evidence", err))
		}
		result.Runs = ev.Runs
	}

	if opts.Format == "json" {
		return f.JSON("ok", result, nil)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Session %s\n", sum.ID)
	fmt.Fprintf(w, "  spec:      %s\n", sum.SpecID)
	fmt.Fprintf(w, "  prior:     Beta(%g, %g)\n", sum.Prior.Alpha, sum.Prior.Beta)
	fmt.Fprintf(w, "  samples:   %d (%d passed, %d failed)\n", sum.Samples, sum.Successes, sum.Failures)
	fmt.Fprintf(w, "  score:     %.4f\n", sum.EquivalenceScore)
	fmt.Fprintf(w, "  verified:  %t\n", sum.Verified)
	fmt.Fprintf(w, "  stopped:   %s\n", sum.StopReason)
	if sum.ExecutableRef != "" {
		fmt.Fprintf(w, "  executable: %s\n", sum.ExecutableRef)
	}
	for _, r := range result.Runs {
		fmt.Fprintf(w, "  #%d %-18s seed=%d %s\n", r.Seq, r.Outcome(), r.VariationSeed, r.CandidateRef)
	}
	return nil
}

func runListSessions(opts *EvidenceOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	st, err := openExistingStore(opts.RootOptions, opts.Database)
	if err != nil {
		return f.Fail(ErrCodeNoDatabase, err)
	}
	defer st.Close()

	sessions, err := st.ListSessions(cmd.Context())
	if err != nil {
		return f.Fail(ErrCodeStore, WrapExitError(ExitFailure, "failed to list sessions", err))
	}

	if opts.Format == "json" {
		return f.JSON("ok", sessions, nil)
	}

	w := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return nil
	}
	for _, s := range sessions {
		mark := "✗"
		if s.Verified {
			mark = "✓"
		}
		fmt.Fprintf(w, "%s %s  score=%.4f samples=%d stop=%s\n", mark, s.ID, s.EquivalenceScore, s.Samples, s.StopReason)
	}
	return nil
}
