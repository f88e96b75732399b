package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/ashc/internal/causal"
	"github.com/roach88/ashc/internal/harness"
	"github.com/roach88/ashc/internal/ledger"
	"github.com/roach88/ashc/internal/store"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update   bool   // regenerate golden files
	Filter   string // scenario filter (glob pattern)
	Database string // optional evidence store
	Identity string // ledger identity for claims
	RunID    string // session id suffix when persisting; default a fresh UUIDv7
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name             string   `json:"name"`
	SessionID        string   `json:"session_id,omitempty"`
	Pass             bool     `json:"pass"`
	Samples          int      `json:"samples,omitempty"`
	EquivalenceScore float64  `json:"equivalence_score,omitempty"`
	Errors           []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios   []ScenarioResult `json:"scenarios"`
	Passed      int              `json:"passed"`
	Failed      int              `json:"failed"`
	Total       int              `json:"total"`
	Credibility float64          `json:"credibility"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run compile scenarios",
		Long: `Run scenario files against the real engine with scripted samples.

Each scenario's expectations are checked; when a golden file exists in
<scenarios-dir>/golden/<name>.golden the evidence must also match it.
With --db, sessions, settlements and causal edges are persisted, and
earlier settlements and edges are loaded first so they accumulate. Each
persisted session is named <scenario>@<run-id>, so repeated runs keep
their own evidence; golden files are not compared for suffixed sessions.

ASHC_TOOL_TIMEOUT bounds tool calls for scenarios without tool_timeout,
and ASHC_GENERATION_RATE caps generator calls per second.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  ashc test ./scenarios
  ashc test ./scenarios --filter "parallel_*"
  ashc test ./scenarios --update
  ashc test ./scenarios --db ./ashc.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Database, "db", "", "persist results to this SQLite database (default $ASHC_DB_PATH)")
	cmd.Flags().StringVar(&opts.Identity, "identity", "", "ledger identity for claims (default $ASHC_IDENTITY)")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "session id suffix for persisted sessions (default: a new UUIDv7)")

	return cmd
}

// testRun holds the shared collaborators of one test command.
type testRun struct {
	harness *harness.Harness
	graph   *causal.Graph
	ledger  *ledger.Ledger
	store   *store.Store
}

func runTests(ctx context.Context, opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}
	if opts.Update && opts.dbPath(opts.Database) != "" {
		return NewExitError(ExitCommandError, "--update cannot be combined with a database: golden files pin unsuffixed sessions")
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{Scenarios: []ScenarioResult{}, Credibility: 1})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	tr, err := newTestRun(ctx, opts)
	if err != nil {
		return err
	}
	if tr.store != nil {
		defer tr.store.Close()
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}
	for _, scenarioFile := range scenarioFiles {
		scenResult := tr.runScenario(ctx, scenarioFile, opts, cmd)
		result.Scenarios = append(result.Scenarios, scenResult)
		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if tr.store != nil {
		if err := tr.store.SaveEdges(ctx, tr.graph.Edges()); err != nil {
			return WrapExitError(ExitCommandError, "failed to save causal edges", err)
		}
	}
	result.Credibility = tr.ledger.Credibility()

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// newTestRun wires the shared learner and ledger, restoring their state
// from the store when one is configured.
func newTestRun(ctx context.Context, opts *TestOptions) (*testRun, error) {
	sim, err := causal.NewCachedSimilarity(causal.TokenJaccard{}, opts.similarityCacheSize())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid similarity cache", err)
	}
	logger := opts.logger()
	graph, err := causal.NewGraph(sim, causal.DefaultConfig(), causal.WithLogger(logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create causal graph", err)
	}
	l, err := ledger.New(opts.identity(opts.Identity), ledger.WithLogger(logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create ledger", err)
	}

	tr := &testRun{graph: graph, ledger: l}
	hopts := []harness.Option{
		harness.WithLogger(logger),
		harness.WithLearner(causal.NewLearner(graph)),
		harness.WithLedger(l),
		harness.WithToolTimeout(opts.Config.ToolTimeout),
		harness.WithGenerationRate(opts.Config.GenerationRate),
	}

	if path := opts.dbPath(opts.Database); path != "" {
		st, err := store.Open(path)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		if err := restoreLedger(ctx, st, l); err != nil {
			st.Close()
			return nil, err
		}
		edges, err := st.ReadEdges(ctx)
		if err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to read causal edges", err)
		}
		graph.Restore(edges)
		tr.store = st

		runID := opts.RunID
		if runID == "" {
			runID = uuid.Must(uuid.NewV7()).String()
		}
		hopts = append(hopts, harness.WithSessionSuffix(runID))
	}

	tr.harness = harness.New(hopts...)
	return tr, nil
}

// findScenarioFiles finds all YAML scenario files in a directory.
// The golden/ subdirectory is skipped.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != dir && info.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// runScenario executes a single scenario and returns the result.
func (tr *testRun) runScenario(ctx context.Context, scenarioFile string, opts *TestOptions, cmd *cobra.Command) ScenarioResult {
	w := cmd.OutOrStdout()
	fail := func(name string, errs ...string) ScenarioResult {
		if opts.Format != "json" {
			fmt.Fprintf(w, "✗ %s\n", name)
			for _, e := range errs {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		return ScenarioResult{Name: name, Pass: false, Errors: errs}
	}

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return fail(filepath.Base(scenarioFile), fmt.Sprintf("failed to load scenario: %v", err))
	}

	result, err := tr.harness.Run(ctx, scenario)
	if err != nil {
		return fail(scenario.Name, fmt.Sprintf("execution failed: %v", err))
	}

	sr := ScenarioResult{Name: scenario.Name, SessionID: tr.harness.SessionID(scenario.Name)}
	if out := result.Output; out != nil {
		sr.Samples = out.Evidence.Total()
		sr.EquivalenceScore = out.EquivalenceScore
		if tr.store != nil {
			if err := tr.persist(ctx, result); err != nil {
				return fail(scenario.Name, fmt.Sprintf("failed to persist session: %v", err))
			}
		}
	}

	goldenPath := goldenFilePath(scenarioFile)
	if opts.Update {
		if err := updateGoldenFile(scenario, result, goldenPath); err != nil {
			return fail(scenario.Name, fmt.Sprintf("failed to update golden file: %v", err))
		}
		if opts.Format != "json" {
			fmt.Fprintf(w, "✓ %s (golden updated)\n", scenario.Name)
		}
		sr.Pass = true
		return sr
	}

	if _, err := os.Stat(goldenPath); err == nil && tr.store == nil {
		match, err := compareWithGolden(scenario, result, goldenPath)
		if err != nil {
			return fail(scenario.Name, fmt.Sprintf("golden comparison failed: %v", err))
		}
		if !match {
			return fail(scenario.Name, "evidence does not match golden file (run with --update to regenerate)")
		}
	}

	if !result.Pass {
		res := fail(scenario.Name, result.Errors...)
		res.SessionID, res.Samples, res.EquivalenceScore = sr.SessionID, sr.Samples, sr.EquivalenceScore
		return res
	}

	if opts.Format != "json" {
		fmt.Fprintf(w, "✓ %s\n", scenario.Name)
	}
	sr.Pass = true
	return sr
}

func (tr *testRun) persist(ctx context.Context, result *harness.Result) error {
	out := result.Output
	if err := tr.store.WriteSession(ctx, out); err != nil {
		return err
	}
	if out.Settlement != nil {
		return tr.store.WriteSettlement(ctx, out.SessionID, *out.Settlement)
	}
	return nil
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// updateGoldenFile writes the current evidence as the golden file.
func updateGoldenFile(scenario *harness.Scenario, result *harness.Result, goldenPath string) error {
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	data, err := harness.Snapshot(scenario.Name, result)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}
	if err := os.WriteFile(goldenPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// compareWithGolden compares the result evidence against the golden file.
func compareWithGolden(scenario *harness.Scenario, result *harness.Result, goldenPath string) (bool, error) {
	goldenData, err := os.ReadFile(goldenPath)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	current, err := harness.Snapshot(scenario.Name, result)
	if err != nil {
		return false, fmt.Errorf("failed to marshal current evidence: %w", err)
	}
	return bytes.Equal(goldenData, current), nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	status := "ok"
	var cliErr *CLIError
	if result.Failed > 0 {
		status = "error"
		cliErr = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	if err := formatter.JSON(status, result, cliErr); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
