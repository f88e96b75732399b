package ir

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ashc/internal/bayes"
)

func runWith(seq int64, passed bool) Run {
	return Run{ID: MustRunID("s", seq, "c", passed), SessionID: "s", Seq: seq, Passed: passed}
}

func TestEvidence_AppendDoesNotMutate(t *testing.T) {
	e0 := NewEvidence("spec", bayes.Uniform())
	e1 := e0.Append(runWith(1, true))
	e2 := e1.Append(runWith(2, false))

	assert.Equal(t, 0, e0.Total())
	assert.Equal(t, 1, e1.Total())
	assert.Equal(t, 2, e2.Total())
	assert.Equal(t, int64(1), e2.Runs[0].Seq)
	assert.Equal(t, int64(2), e2.Runs[1].Seq)
}

func TestEvidence_Tally(t *testing.T) {
	e := NewEvidence("spec", bayes.Uniform())
	for i, ok := range []bool{true, true, false, true} {
		e = e.Append(runWith(int64(i+1), ok))
	}

	assert.Equal(t, 3, e.Successes())
	assert.Equal(t, 1, e.Failures())
	assert.Equal(t, bayes.BetaPrior{Alpha: 4, Beta: 2}, e.Posterior())
	assert.InDelta(t, 4.0/6.0, e.EquivalenceScore(), 1e-12)

	last, ok := e.LastPassing()
	require.True(t, ok)
	assert.Equal(t, int64(4), last.Seq)
}

func TestEvidence_EmptyScoreIsPriorMean(t *testing.T) {
	e := NewEvidence("spec", bayes.BetaPrior{Alpha: 9, Beta: 1})
	assert.InDelta(t, 0.9, e.EquivalenceScore(), 1e-12)

	_, ok := e.LastPassing()
	assert.False(t, ok)
}

func TestEquivalenceScore_Monotone(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	prior := gen.Float64Range(0.1, 20)
	count := gen.IntRange(0, 500)

	properties.Property("non-decreasing in successes for fixed failures", prop.ForAll(
		func(a, b float64, s, f int) bool {
			p := bayes.BetaPrior{Alpha: a, Beta: b}
			return EquivalenceScore(p, s+1, f) >= EquivalenceScore(p, s, f)
		},
		prior, prior, count, count,
	))

	properties.Property("non-increasing in failures for fixed successes", prop.ForAll(
		func(a, b float64, s, f int) bool {
			p := bayes.BetaPrior{Alpha: a, Beta: b}
			return EquivalenceScore(p, s, f+1) <= EquivalenceScore(p, s, f)
		},
		prior, prior, count, count,
	))

	properties.Property("score stays in [0,1]", prop.ForAll(
		func(a, b float64, s, f int) bool {
			score := EquivalenceScore(bayes.BetaPrior{Alpha: a, Beta: b}, s, f)
			return score >= 0 && score <= 1
		},
		prior, prior, count, count,
	))

	properties.TestingRun(t)
}

func TestRun_Outcome(t *testing.T) {
	assert.Equal(t, "pass", Run{Passed: true}.Outcome())
	assert.Equal(t, "generation_failure", Run{GenerationError: "boom"}.Outcome())
	assert.Equal(t, "timeout", Run{TimedOut: true}.Outcome())
	assert.Equal(t, "fail", Run{}.Outcome())
}

func TestRun_CanonicalMapIsHashable(t *testing.T) {
	r := Run{
		ID:           "id",
		Seq:          1,
		CandidateRef: "c1",
		Passed:       false,
		ToolResults: []ToolResult{
			{ToolName: "tests", Class: ToolCritical, Passed: false, Diagnostics: []string{"1 failed"}},
			{ToolName: "lint", Class: ToolAdvisory, Passed: true},
		},
	}

	out, err := MarshalCanonical(r.CanonicalMap())
	require.NoError(t, err)
	assert.Contains(t, string(out), `"diagnostics":["1 failed"]`)
	assert.NotContains(t, string(out), "timestamp")

	tr, ok := r.ToolResult("lint")
	require.True(t, ok)
	assert.True(t, tr.Passed)
}

func TestNudgeKey(t *testing.T) {
	assert.Equal(t, "add type hints", NudgeKey("  Add   TYPE\thints "))
	assert.Equal(t, NudgeKey("caf\u00e9 mode"), NudgeKey("CAFE\u0301 MODE"))
	assert.Equal(t, "", NudgeKey("   "))
}
