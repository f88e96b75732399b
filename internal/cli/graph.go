package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ashc/internal/causal"
)

// GraphOptions holds flags for the graph command.
type GraphOptions struct {
	*RootOptions
	Database  string
	Nudge     string
	Tolerance float64
}

// GraphResult is the JSON payload of the graph command.
type GraphResult struct {
	Edges      []causal.Edge           `json:"edges"`
	Prediction *causal.PredictedEffect `json:"prediction,omitempty"`
	Violations []causal.Violation      `json:"violations"`
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect the learned causal graph",
		Long: `Show stored causal edges, check similar edges for disagreeing deltas,
and optionally forecast the effect of a nudge.

Exit codes:
  0 - No monotonicity violations
  1 - Violations found
  2 - Command error

Examples:
  ashc graph --db ./ashc.db
  ashc graph --db ./ashc.db --nudge "add type hints"
  ashc graph --db ./ashc.db --tolerance 0.1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database (default $ASHC_DB_PATH)")
	cmd.Flags().StringVar(&opts.Nudge, "nudge", "", "forecast the effect of this nudge")
	cmd.Flags().Float64Var(&opts.Tolerance, "tolerance", 0.3, "maximum delta gap between similar edges")

	return cmd
}

func runGraph(opts *GraphOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	if opts.Tolerance < 0 {
		return f.Fail(ErrCodeGeneric, NewExitError(ExitCommandError, "--tolerance must be >= 0"))
	}

	st, err := openExistingStore(opts.RootOptions, opts.Database)
	if err != nil {
		return f.Fail(ErrCodeNoDatabase, err)
	}
	defer st.Close()

	edges, err := st.ReadEdges(cmd.Context())
	if err != nil {
		return f.Fail(ErrCodeStore, WrapExitError(ExitFailure, "failed to read causal edges", err))
	}

	sim, err := causal.NewCachedSimilarity(causal.TokenJaccard{}, opts.similarityCacheSize())
	if err != nil {
		return f.Fail(ErrCodeGeneric, WrapExitError(ExitCommandError, "invalid similarity cache", err))
	}
	graph, err := causal.NewGraph(sim, causal.DefaultConfig(), causal.WithLogger(opts.logger()))
	if err != nil {
		return f.Fail(ErrCodeGeneric, WrapExitError(ExitCommandError, "failed to create causal graph", err))
	}
	graph.Restore(edges)

	result := GraphResult{
		Edges:      graph.Edges(),
		Violations: graph.CheckMonotonicity(opts.Tolerance),
	}
	if opts.Nudge != "" {
		p := graph.Predict(opts.Nudge)
		result.Prediction = &p
	}

	var exitErr error
	if len(result.Violations) > 0 {
		exitErr = NewExitError(ExitFailure, fmt.Sprintf("%d monotonicity violation(s)", len(result.Violations)))
	}

	if opts.Format == "json" {
		status := "ok"
		if exitErr != nil {
			status = "error"
		}
		if err := f.JSON(status, result, nil); err != nil {
			return err
		}
		return exitErr
	}

	w := cmd.OutOrStdout()
	if len(result.Edges) == 0 {
		fmt.Fprintln(w, "No causal edges recorded.")
	}
	for _, e := range result.Edges {
		fmt.Fprintf(w, "%-28s delta=%+.4f confidence=%.3f observations=%d\n",
			e.Key, e.OutcomeDelta, e.Confidence, e.ObservationCount)
	}
	if p := result.Prediction; p != nil {
		if p.Matches == 0 {
			fmt.Fprintf(w, "Forecast %q: no similar edges\n", opts.Nudge)
		} else {
			fmt.Fprintf(w, "Forecast %q: delta=%+.4f confidence=%.3f (%d match(es))\n",
				opts.Nudge, p.ExpectedDelta, p.Confidence, p.Matches)
		}
	}
	for _, v := range result.Violations {
		fmt.Fprintf(w, "✗ %s vs %s: gap %.4f (similarity %.2f)\n", v.A, v.B, v.Gap, v.Similarity)
	}
	return exitErr
}
