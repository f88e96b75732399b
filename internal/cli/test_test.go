package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../harness/testdata/scenarios"

func executeTest(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// copyScenarios copies the named scenario files into a fresh directory.
func copyScenarios(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(scenariosDir, name+".yaml"))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), data, 0644))
	}
	return dir
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := executeTest(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := executeTest(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := executeTest(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := executeTest(t, "json", t.TempDir())
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
	assert.Empty(t, resp.Data.Scenarios)
}

func TestTestCommandAllScenariosPass(t *testing.T) {
	out, err := executeTest(t, "text", scenariosDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ early_pass")
	assert.Contains(t, out, "✓ tool_unavailable")
	assert.Contains(t, out, "Test Summary: 8 passed, 0 failed, 8 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFilterJSON(t *testing.T) {
	out, err := executeTest(t, "json", scenariosDir, "--filter", "early_*")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Scenarios, 1)

	sr := resp.Data.Scenarios[0]
	assert.Equal(t, "early_pass", sr.Name)
	assert.True(t, sr.Pass)
	assert.Equal(t, 3, sr.Samples)
	assert.InDelta(t, 0.8, sr.EquivalenceScore, 1e-9)
	assert.Equal(t, 1.0, resp.Data.Credibility)
}

func TestTestCommandInvalidFilter(t *testing.T) {
	_, err := executeTest(t, "text", scenariosDir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	yaml := `name: wrong_guess
description: expects the wrong sample count
stopping:
  n_diff_margin: 3
  max_samples: 20
  confidence_threshold: 0.9
outcomes: [pass]
expect:
  samples: 4
  verified: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong_guess.yaml"), []byte(yaml), 0644))

	out, err := executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_guess")
	assert.Contains(t, out, "Expectation failed: samples")
	assert.Contains(t, out, "1 failed")
}

func TestTestCommandFailingScenarioJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [unclosed\n"), 0644))

	out, err := executeTest(t, "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "failed to load scenario")
}

func TestTestCommandUpdateThenCompareGolden(t *testing.T) {
	dir := copyScenarios(t, "early_pass", "likely_fails")

	out, err := executeTest(t, "text", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ early_pass (golden updated)")

	goldenPath := filepath.Join(dir, "golden", "early_pass.golden")
	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"early_pass"`)

	// A second run compares against the files just written.
	out, err = executeTest(t, "text", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "2 passed")

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"scenario_name":"stale"}`), 0644))
	out, err = executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "does not match golden file")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("scen", "golden", "early.golden"), goldenFilePath(filepath.Join("scen", "early.yaml")))
	assert.Equal(t, filepath.Join("golden", "x.golden"), goldenFilePath("x.yml"))
}

func TestFindScenarioFilesSkipsGolden(t *testing.T) {
	dir := copyScenarios(t, "early_pass")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "stray.yaml"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "early_pass.yaml")}, files)
}

// executeRoot runs the full command tree, so configuration is read from
// the environment.
func executeRoot(t *testing.T, timeout time.Duration, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ASHC_DB_PATH", "")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return buf.String(), err
}

const hangingToolScenario = `name: hanging_tool
description: tool calls without a scenario timeout use the configured one
stopping:
  n_diff_margin: 3
  max_samples: 3
  confidence_threshold: 0.99
outcomes: [timeout]
expect:
  samples: 3
  failures: 3
`

func TestTestCommandToolTimeoutFromEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hanging_tool.yaml"), []byte(hangingToolScenario), 0644))

	t.Run("short", func(t *testing.T) {
		t.Setenv("ASHC_TOOL_TIMEOUT", "10ms")
		out, err := executeRoot(t, 10*time.Second, "test", dir)
		require.NoError(t, err, out)
		assert.Contains(t, out, "✓ hanging_tool")
	})

	t.Run("long", func(t *testing.T) {
		t.Setenv("ASHC_TOOL_TIMEOUT", "1h")
		out, err := executeRoot(t, 300*time.Millisecond, "test", dir)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Contains(t, out, "CANCELED")
	})
}

func TestTestCommandGenerationRateFromEnv(t *testing.T) {
	dir := copyScenarios(t, "early_pass")
	t.Setenv("ASHC_GENERATION_RATE", "0.001")

	// The second sample would wait far past the deadline, so the limiter
	// fails it at once.
	out, err := executeRoot(t, 10*time.Second, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Scenarios, 1)
	sr := resp.Data.Scenarios[0]
	assert.False(t, sr.Pass)
	require.NotEmpty(t, sr.Errors)
	assert.Contains(t, sr.Errors[0], "SAMPLE_FAILED")
}
