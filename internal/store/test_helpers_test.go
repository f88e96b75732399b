package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/ashc/internal/engine"
	"github.com/roach88/ashc/internal/ir"
	"github.com/roach88/ashc/internal/stopping"
	"github.com/roach88/ashc/internal/testutil"
	"github.com/roach88/ashc/internal/verify"
)

// createTestStore creates a new store in a temp dir with a fixed clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	s.now = testutil.NewDeterministicClock().Now
	t.Cleanup(func() { s.Close() })
	return s
}

// compileTestSession runs a real compile session over scripted outcomes.
func compileTestSession(t *testing.T, sessionID string, nudges []string, outcomes ...testutil.Outcome) *engine.Output {
	t.Helper()

	ver, err := verify.NewVerifier(testutil.NewScriptedAdapter("lint"), []verify.ToolSpec{
		{Name: "tests", Class: ir.ToolCritical},
		{Name: "lint", Class: ir.ToolAdvisory},
	}, verify.Options{Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewVerifier() failed: %v", err)
	}

	cfg, err := stopping.NewConfig(100, len(outcomes), 1.0)
	if err != nil {
		t.Fatalf("NewConfig() failed: %v", err)
	}

	c := engine.New(
		engine.WithSessionIDs(engine.NewFixedGenerator(sessionID)),
		engine.WithNow(testutil.NewDeterministicClock().Now),
	)
	out, err := c.Compile(context.Background(),
		engine.Spec{Text: "reverse a string"},
		testutil.NewScriptedGenerator(outcomes...),
		ver,
		engine.Config{Stopping: cfg, Nudges: nudges},
	)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	return out
}
