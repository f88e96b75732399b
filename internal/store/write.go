package store

import (
	"context"
	"fmt"

	"github.com/roach88/ashc/internal/causal"
	"github.com/roach88/ashc/internal/engine"
	"github.com/roach88/ashc/internal/ir"
	"github.com/roach88/ashc/internal/ledger"
)

// WriteSession stores a finished session and all of its runs in one
// transaction. Writing the same session twice is a no-op.
func (s *Store) WriteSession(ctx context.Context, out *engine.Output) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write session: begin: %w", err)
	}
	defer tx.Rollback()

	executableRef := ""
	if out.Executable != nil {
		executableRef = out.Executable.Ref
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO sessions
		(id, seq, spec_id, spec_text, prior_alpha, prior_beta, samples, successes, failures,
		 equivalence_score, verified, stop_reason, executable_ref, engine_version, ir_version, recorded_at)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM sessions), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		out.SessionID,
		out.Evidence.SpecID,
		out.Spec.Text,
		out.Evidence.Prior.Alpha,
		out.Evidence.Prior.Beta,
		out.Evidence.Total(),
		out.Evidence.Successes(),
		out.Evidence.Failures(),
		out.EquivalenceScore,
		boolInt(out.Verified),
		string(out.Decision.Reason),
		executableRef,
		ir.EngineVersion,
		ir.IRVersion,
		formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	for _, run := range out.Evidence.Runs {
		toolsJSON, err := marshalToolResults(run.ToolResults)
		if err != nil {
			return fmt.Errorf("write session: run %d: %w", run.Seq, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO runs
			(id, session_id, seq, variation_seed, nudge, candidate_ref, passed, timed_out,
			 generation_error, tool_results, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`,
			run.ID,
			out.SessionID,
			run.Seq,
			run.VariationSeed,
			run.Nudge,
			run.CandidateRef,
			boolInt(run.Passed),
			boolInt(run.TimedOut),
			run.GenerationError,
			toolsJSON,
			formatTime(run.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("write session: run %d: %w", run.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write session: commit: %w", err)
	}
	return nil
}

// WriteSettlement stores a settlement. sessionID may be empty for bets not
// tied to a compile session. Duplicate bet ids are ignored.
func (s *Store) WriteSettlement(ctx context.Context, sessionID string, st ledger.BetSettlement) error {
	factorsJSON, err := marshalFactors(st.Factors)
	if err != nil {
		return fmt.Errorf("write settlement: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settlements
		(bet_id, identity, session_id, confidence, stake, factors, success,
		 was_overconfident, payout, credibility_after, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(bet_id) DO NOTHING
	`,
		st.BetID,
		st.Identity,
		sessionID,
		st.Confidence,
		st.Stake,
		factorsJSON,
		boolInt(st.Success),
		boolInt(st.WasOverconfident),
		st.Payout,
		st.CredibilityAfter,
		formatTime(st.SettledAt),
	)
	if err != nil {
		return fmt.Errorf("write settlement: %w", err)
	}
	return nil
}

// SaveEdges upserts causal edges by key. New keys keep the order in which
// they appear in edges, after any already stored.
func (s *Store) SaveEdges(ctx context.Context, edges []causal.Edge) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save edges: begin: %w", err)
	}
	defer tx.Rollback()

	for _, e := range edges {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO causal_edges
			(key, seq, descriptor, outcome_delta, confidence, observation_count, total_weight)
			VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM causal_edges), ?, ?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				outcome_delta = excluded.outcome_delta,
				confidence = excluded.confidence,
				observation_count = excluded.observation_count,
				total_weight = excluded.total_weight
		`,
			e.Key,
			e.Descriptor,
			e.OutcomeDelta,
			e.Confidence,
			e.ObservationCount,
			e.TotalWeight,
		)
		if err != nil {
			return fmt.Errorf("save edges: %s: %w", e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save edges: commit: %w", err)
	}
	return nil
}
