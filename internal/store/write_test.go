package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ashc/internal/bayes"
	"github.com/roach88/ashc/internal/causal"
	"github.com/roach88/ashc/internal/ledger"
	"github.com/roach88/ashc/internal/stopping"
	"github.com/roach88/ashc/internal/testutil"
)

func TestWriteSession_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	out := compileTestSession(t, "session-1", []string{"add type hints"},
		testutil.OutcomePass, testutil.OutcomeFail, testutil.OutcomeGenError, testutil.OutcomeAdvisoryFail)

	require.NoError(t, s.WriteSession(ctx, out))

	ev, err := s.ReadEvidence(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, out.Evidence, ev)
	assert.Equal(t, out.EquivalenceScore, ev.EquivalenceScore())

	sum, err := s.ReadSession(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, out.Evidence.SpecID, sum.SpecID)
	assert.Equal(t, "reverse a string", sum.SpecText)
	assert.Equal(t, bayes.Uniform(), sum.Prior)
	assert.Equal(t, 4, sum.Samples)
	assert.Equal(t, 2, sum.Successes)
	assert.Equal(t, 2, sum.Failures)
	assert.Equal(t, stopping.ReasonMaxSamples, sum.StopReason)
	assert.Equal(t, "cand-3", sum.ExecutableRef)
	assert.Equal(t, testutil.DefaultEpoch, sum.RecordedAt)
}

func TestWriteSession_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	out := compileTestSession(t, "session-1", nil, testutil.OutcomePass, testutil.OutcomeFail)

	require.NoError(t, s.WriteSession(ctx, out))
	require.NoError(t, s.WriteSession(ctx, out))

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count))
	assert.Equal(t, 2, count)

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestListSessions_WriteOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	empty, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	require.NoError(t, s.WriteSession(ctx, compileTestSession(t, "zz", nil, testutil.OutcomePass)))
	require.NoError(t, s.WriteSession(ctx, compileTestSession(t, "aa", nil, testutil.OutcomeFail)))

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "zz", sessions[0].ID)
	assert.Equal(t, "aa", sessions[1].ID)
	assert.True(t, sessions[0].Verified == (sessions[0].EquivalenceScore >= 0.8))
}

func TestReadEvidence_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadEvidence(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSettlements_ReplayIntoLedger(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	clock := testutil.NewDeterministicClockAt(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Minute)
	source, err := ledger.New("agent-a",
		ledger.WithIDGenerator(testutil.NewSequentialIDs("bet")),
		ledger.WithNow(clock.Now),
	)
	require.NoError(t, err)

	for _, tc := range []struct {
		conf    float64
		success bool
		factors []string
	}{
		{0.9, false, []string{"tests"}},
		{0.9, true, nil},
		{0.4, true, []string{"tests", "types"}},
	} {
		bet, err := source.PlaceBet(tc.conf, 1, tc.factors)
		require.NoError(t, err)
		st, err := source.Settle(bet.ID, tc.success)
		require.NoError(t, err)
		require.NoError(t, s.WriteSettlement(ctx, "session-1", st))
		// Duplicate writes are ignored.
		require.NoError(t, s.WriteSettlement(ctx, "session-1", st))
	}

	stored, err := s.ReadSettlements(ctx, "agent-a")
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "bet-1", stored[0].BetID)
	assert.True(t, stored[0].WasOverconfident)
	assert.Nil(t, stored[1].Factors)

	replica, err := ledger.New("agent-a")
	require.NoError(t, err)
	for _, st := range stored {
		_, err := replica.RecordSettlement(st)
		require.NoError(t, err)
	}
	assert.Equal(t, source.Snapshot(), replica.Snapshot())
	assert.Equal(t, source.Factors(), replica.Factors())

	others, err := s.ReadSettlements(ctx, "agent-b")
	require.NoError(t, err)
	assert.Empty(t, others)

	all, err := s.ReadSettlements(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestEdges_Upsert(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	g, err := causal.NewGraph(causal.TokenJaccard{}, causal.DefaultConfig())
	require.NoError(t, err)
	learner := causal.NewLearner(g)

	_, err = learner.Observe("use tabs", bayes.Uniform(), compileTestSession(t, "s1", nil, testutil.OutcomeFail).Evidence.Runs[0])
	require.NoError(t, err)
	require.NoError(t, s.SaveEdges(ctx, g.Edges()))

	_, err = learner.Observe("add type hints", bayes.Uniform(), compileTestSession(t, "s2", nil, testutil.OutcomePass).Evidence.Runs[0])
	require.NoError(t, err)
	_, err = learner.Observe("use tabs", bayes.Uniform(), compileTestSession(t, "s3", nil, testutil.OutcomePass).Evidence.Runs[0])
	require.NoError(t, err)
	require.NoError(t, s.SaveEdges(ctx, g.Edges()))

	edges, err := s.ReadEdges(ctx)
	require.NoError(t, err)
	assert.Equal(t, g.Edges(), edges)
	require.Len(t, edges, 2)
	assert.Equal(t, "use tabs", edges[0].Key, "creation order survives upserts")
	assert.Equal(t, 2, edges[0].ObservationCount)
}
