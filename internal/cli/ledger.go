package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ashc/internal/ledger"
)

// LedgerOptions holds flags for the ledger command.
type LedgerOptions struct {
	*RootOptions
	Database string
	Identity string
}

// LedgerResult is the JSON payload of the ledger command.
type LedgerResult struct {
	Snapshot ledger.Snapshot      `json:"snapshot"`
	Factors  []ledger.FactorStats `json:"factors"`
}

// NewLedgerCommand creates the ledger command.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Show an identity's credibility",
		Long: `Replay stored bet settlements for an identity and show its credibility
and per-factor track record.

Examples:
  ashc ledger --db ./ashc.db
  ashc ledger --db ./ashc.db --identity harness --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedger(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database (default $ASHC_DB_PATH)")
	cmd.Flags().StringVar(&opts.Identity, "identity", "", "ledger identity (default $ASHC_IDENTITY)")

	return cmd
}

func runLedger(opts *LedgerOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	st, err := openExistingStore(opts.RootOptions, opts.Database)
	if err != nil {
		return f.Fail(ErrCodeNoDatabase, err)
	}
	defer st.Close()

	l, err := ledger.New(opts.identity(opts.Identity), ledger.WithLogger(opts.logger()))
	if err != nil {
		return f.Fail(ErrCodeGeneric, WrapExitError(ExitCommandError, "failed to create ledger", err))
	}
	if err := restoreLedger(cmd.Context(), st, l); err != nil {
		return f.Fail(ErrCodeStore, err)
	}

	result := LedgerResult{Snapshot: l.Snapshot(), Factors: l.Factors()}
	if opts.Format == "json" {
		return f.JSON("ok", result, nil)
	}

	w := cmd.OutOrStdout()
	snap := result.Snapshot
	fmt.Fprintf(w, "Identity %s\n", snap.Identity)
	fmt.Fprintf(w, "  credibility:   %.4f\n", snap.Credibility)
	fmt.Fprintf(w, "  bets:          %d (%d successful)\n", snap.TotalBets, snap.SuccessfulBets)
	fmt.Fprintf(w, "  overconfident: %d\n", snap.OverconfidentCount)
	if len(result.Factors) > 0 {
		fmt.Fprintln(w, "Factors:")
		for _, fs := range result.Factors {
			fmt.Fprintf(w, "  %-24s bets=%d rate=%.2f overconfident=%d\n",
				fs.Factor, fs.Bets, fs.SuccessRate(), fs.OverconfidentFailures)
		}
	}
	return nil
}
