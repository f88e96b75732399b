package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ashc/internal/engine"
	"github.com/roach88/ashc/internal/ir"
	"github.com/roach88/ashc/internal/verify"
)

func TestSequentialIDs(t *testing.T) {
	ids := NewSequentialIDs("session")
	assert.Equal(t, "session-1", ids.Generate())
	assert.Equal(t, "session-2", ids.Generate())

	assert.Equal(t, "id-1", NewSequentialIDs("").Generate())
}

func TestScriptedGenerator_KeyedBySeed(t *testing.T) {
	gen := NewScriptedGenerator(OutcomePass, OutcomeGenError, OutcomeFail)
	ctx := context.Background()

	c, err := gen.Generate(ctx, engine.Spec{}, engine.Variation{Seed: 3})
	require.NoError(t, err)
	assert.Equal(t, "cand-3", c.Ref)
	assert.Equal(t, string(OutcomePass), c.Source)

	_, err = gen.Generate(ctx, engine.Spec{}, engine.Variation{Seed: 4})
	assert.Error(t, err)

	c, err = gen.Generate(ctx, engine.Spec{}, engine.Variation{Seed: 5})
	require.NoError(t, err)
	assert.Equal(t, string(OutcomeFail), c.Source)
}

func TestScriptedAdapter_ThroughVerifier(t *testing.T) {
	v, err := verify.NewVerifier(NewScriptedAdapter("lint"), []verify.ToolSpec{
		{Name: "tests", Class: ir.ToolCritical},
		{Name: "lint", Class: ir.ToolAdvisory},
	}, verify.Options{Timeout: 10 * time.Millisecond})
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		outcome  Outcome
		passed   bool
		timedOut bool
	}{
		{OutcomePass, true, false},
		{OutcomeFail, false, false},
		{OutcomeAdvisoryFail, true, false},
		{OutcomeTimeout, false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.outcome), func(t *testing.T) {
			verdict, err := v.Verify(ctx, ir.Candidate{Ref: "c", Source: string(tt.outcome)})
			require.NoError(t, err)
			assert.Equal(t, tt.passed, verdict.Passed)
			assert.Equal(t, tt.timedOut, verdict.TimedOut)
		})
	}

	_, err = v.Verify(ctx, ir.Candidate{Ref: "c", Source: string(OutcomeToolUnavailable)})
	assert.True(t, verify.IsToolUnavailableError(err))
	assert.ErrorIs(t, err, ErrScriptedToolMissing)
}
