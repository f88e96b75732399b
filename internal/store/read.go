package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/ashc/internal/bayes"
	"github.com/roach88/ashc/internal/causal"
	"github.com/roach88/ashc/internal/ir"
	"github.com/roach88/ashc/internal/ledger"
	"github.com/roach88/ashc/internal/stopping"
)

// SessionSummary is the stored verdict of one session.
type SessionSummary struct {
	ID               string          `json:"id"`
	SpecID           string          `json:"spec_id"`
	SpecText         string          `json:"spec_text"`
	Prior            bayes.BetaPrior `json:"prior"`
	Samples          int             `json:"samples"`
	Successes        int             `json:"successes"`
	Failures         int             `json:"failures"`
	EquivalenceScore float64         `json:"equivalence_score"`
	Verified         bool            `json:"verified"`
	StopReason       stopping.Reason `json:"stop_reason"`
	ExecutableRef    string          `json:"executable_ref,omitempty"`
	RecordedAt       time.Time       `json:"recorded_at"`
}

const sessionColumns = `id, spec_id, spec_text, prior_alpha, prior_beta, samples, successes, failures,
	equivalence_score, verified, stop_reason, executable_ref, recorded_at`

// ReadSession returns one session summary, or ErrNotFound.
func (s *Store) ReadSession(ctx context.Context, sessionID string) (SessionSummary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, sessionID)
	sum, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionSummary{}, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return SessionSummary{}, fmt.Errorf("read session: %w", err)
	}
	return sum, nil
}

// ListSessions returns every session in write order.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]SessionSummary, 0)
	for rows.Next() {
		sum, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		sessions = append(sessions, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// ReadEvidence rebuilds a session's Evidence with runs in seq order.
func (s *Store) ReadEvidence(ctx context.Context, sessionID string) (ir.Evidence, error) {
	sum, err := s.ReadSession(ctx, sessionID)
	if err != nil {
		return ir.Evidence{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, seq, variation_seed, nudge, candidate_ref, passed, timed_out,
		       generation_error, tool_results, timestamp
		FROM runs
		WHERE session_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return ir.Evidence{}, fmt.Errorf("read evidence: %w", err)
	}
	defer rows.Close()

	ev := ir.NewEvidence(sum.SpecID, sum.Prior)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return ir.Evidence{}, fmt.Errorf("read evidence: %w", err)
		}
		ev.Runs = append(ev.Runs, run)
	}
	if err := rows.Err(); err != nil {
		return ir.Evidence{}, fmt.Errorf("read evidence: %w", err)
	}
	return ev, nil
}

// ReadSettlements returns settlements in write order. An empty identity
// returns every identity's settlements.
func (s *Store) ReadSettlements(ctx context.Context, identity string) ([]ledger.BetSettlement, error) {
	query := `
		SELECT bet_id, identity, confidence, stake, factors, success, was_overconfident,
		       payout, credibility_after, settled_at
		FROM settlements`
	args := []any{}
	if identity != "" {
		query += ` WHERE identity = ?`
		args = append(args, identity)
	}
	query += ` ORDER BY seq ASC, bet_id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read settlements: %w", err)
	}
	defer rows.Close()

	out := make([]ledger.BetSettlement, 0)
	for rows.Next() {
		var (
			st                        ledger.BetSettlement
			factorsJSON, settledAt    string
			success, wasOverconfident int
		)
		if err := rows.Scan(&st.BetID, &st.Identity, &st.Confidence, &st.Stake, &factorsJSON,
			&success, &wasOverconfident, &st.Payout, &st.CredibilityAfter, &settledAt); err != nil {
			return nil, fmt.Errorf("read settlements: %w", err)
		}
		if st.Factors, err = unmarshalFactors(factorsJSON); err != nil {
			return nil, fmt.Errorf("read settlements: %w", err)
		}
		if st.SettledAt, err = parseTime(settledAt); err != nil {
			return nil, fmt.Errorf("read settlements: %w", err)
		}
		st.Success = success != 0
		st.WasOverconfident = wasOverconfident != 0
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read settlements: %w", err)
	}
	return out, nil
}

// ReadEdges returns every causal edge in creation order.
func (s *Store) ReadEdges(ctx context.Context) ([]causal.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, descriptor, outcome_delta, confidence, observation_count, total_weight
		FROM causal_edges
		ORDER BY seq ASC, key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("read edges: %w", err)
	}
	defer rows.Close()

	edges := make([]causal.Edge, 0)
	for rows.Next() {
		var e causal.Edge
		if err := rows.Scan(&e.Key, &e.Descriptor, &e.OutcomeDelta, &e.Confidence,
			&e.ObservationCount, &e.TotalWeight); err != nil {
			return nil, fmt.Errorf("read edges: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read edges: %w", err)
	}
	return edges, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (SessionSummary, error) {
	var (
		sum        SessionSummary
		verified   int
		stopReason string
		recordedAt string
	)
	if err := r.Scan(&sum.ID, &sum.SpecID, &sum.SpecText, &sum.Prior.Alpha, &sum.Prior.Beta,
		&sum.Samples, &sum.Successes, &sum.Failures, &sum.EquivalenceScore, &verified,
		&stopReason, &sum.ExecutableRef, &recordedAt); err != nil {
		return SessionSummary{}, err
	}
	t, err := parseTime(recordedAt)
	if err != nil {
		return SessionSummary{}, err
	}
	sum.Verified = verified != 0
	sum.StopReason = stopping.Reason(stopReason)
	sum.RecordedAt = t
	return sum, nil
}

func scanRun(r rowScanner) (ir.Run, error) {
	var (
		run              ir.Run
		passed, timedOut int
		toolsJSON, ts    string
	)
	if err := r.Scan(&run.ID, &run.SessionID, &run.Seq, &run.VariationSeed, &run.Nudge,
		&run.CandidateRef, &passed, &timedOut, &run.GenerationError, &toolsJSON, &ts); err != nil {
		return ir.Run{}, err
	}
	tools, err := unmarshalToolResults(toolsJSON)
	if err != nil {
		return ir.Run{}, err
	}
	t, err := parseTime(ts)
	if err != nil {
		return ir.Run{}, err
	}
	run.Passed = passed != 0
	run.TimedOut = timedOut != 0
	run.ToolResults = tools
	run.Timestamp = t
	return run, nil
}
