package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "ashc", cmd.Use)
	assert.Contains(t, cmd.Long, "Beta-Binomial")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"validate", "test", "evidence", "ledger", "graph"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestDatabaseFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"test", "evidence", "ledger", "graph"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			dbFlag := sub.Flags().Lookup("db")
			require.NotNil(t, dbFlag)
			assert.Equal(t, "", dbFlag.DefValue)
		})
	}
}

func TestGraphCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	graphCmd, _, err := cmd.Find([]string{"graph"})
	require.NoError(t, err)

	tol := graphCmd.Flags().Lookup("tolerance")
	require.NotNil(t, tol)
	assert.Equal(t, "0.3", tol.DefValue)
}

func TestRootRejectsInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"validate", "../jobspec/testdata/jobs", "--format", "xml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootRejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("ASHC_TOOL_TIMEOUT", "soon")

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"validate", "../jobspec/testdata/jobs"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootAppliesEnvironment(t *testing.T) {
	dir := t.TempDir()
	dbPath := dir + "/ashc.db"
	t.Setenv("ASHC_DB_PATH", dbPath)

	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"test", "../harness/testdata/scenarios", "--filter", "early_pass"})
	require.NoError(t, cmd.Execute())

	// The test command wrote to ASHC_DB_PATH, so evidence finds the session.
	cmd = NewRootCommand()
	buf.Reset()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"evidence", "early_pass"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Session early_pass")
}

func TestNewLoggerLevels(t *testing.T) {
	buf := &bytes.Buffer{}

	logger := newLogger(buf, "warn", false)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	logger = newLogger(buf, "error", true)
	logger.Debug("verbose wins")
	assert.Contains(t, buf.String(), "verbose wins")
}

func TestRootOptionsFallbacks(t *testing.T) {
	opts := &RootOptions{}
	assert.Equal(t, "", opts.dbPath(""))
	assert.Equal(t, "x.db", opts.dbPath("x.db"))
	assert.Equal(t, "ashc", opts.identity(""))
	assert.Equal(t, 1024, opts.similarityCacheSize())
	assert.NotNil(t, opts.logger())

	opts.Config.DBPath = "env.db"
	opts.Config.Identity = "ci"
	opts.Config.SimilarityCacheSize = 8
	assert.Equal(t, "env.db", opts.dbPath(""))
	assert.Equal(t, "flag.db", opts.dbPath("flag.db"))
	assert.Equal(t, "ci", opts.identity(""))
	assert.Equal(t, "alice", opts.identity("alice"))
	assert.Equal(t, 8, opts.similarityCacheSize())
}
