package testutil

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/ashc/internal/engine"
	"github.com/roach88/ashc/internal/ir"
)

// Outcome scripts what happens to one sample.
type Outcome string

const (
	// OutcomePass: every tool passes.
	OutcomePass Outcome = "pass"
	// OutcomeFail: every critical tool rejects the candidate.
	OutcomeFail Outcome = "fail"
	// OutcomeGenError: the generator fails; no candidate is produced.
	OutcomeGenError Outcome = "gen_error"
	// OutcomeTimeout: critical tools hang until their deadline.
	OutcomeTimeout Outcome = "timeout"
	// OutcomeAdvisoryFail: critical tools pass, advisory tools fail.
	OutcomeAdvisoryFail Outcome = "advisory_fail"
	// OutcomeToolUnavailable: the adapter cannot run critical tools.
	OutcomeToolUnavailable Outcome = "tool_unavailable"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomePass, OutcomeFail, OutcomeGenError, OutcomeTimeout, OutcomeAdvisoryFail, OutcomeToolUnavailable:
		return true
	}
	return false
}

// ErrScriptedToolMissing is the adapter error behind OutcomeToolUnavailable.
var ErrScriptedToolMissing = errors.New("scripted tool missing")

// ScriptedGenerator produces candidates whose Source is the scripted
// outcome for their seed: Outcomes[seed % len(Outcomes)].
//
// Keying by seed rather than call order keeps the script deterministic
// under parallel sampling.
type ScriptedGenerator struct {
	Outcomes []Outcome
}

// NewScriptedGenerator creates a generator cycling through outcomes.
func NewScriptedGenerator(outcomes ...Outcome) *ScriptedGenerator {
	return &ScriptedGenerator{Outcomes: outcomes}
}

// Generate implements engine.Generator.
func (g *ScriptedGenerator) Generate(ctx context.Context, _ engine.Spec, v engine.Variation) (engine.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return engine.Candidate{}, err
	}
	if len(g.Outcomes) == 0 {
		return engine.Candidate{}, fmt.Errorf("scripted generator: no outcomes")
	}
	outcome := g.Outcomes[int(v.Seed)%len(g.Outcomes)]
	if outcome == OutcomeGenError {
		return engine.Candidate{}, fmt.Errorf("scripted generation failure for seed %d", v.Seed)
	}
	return engine.Candidate{
		Ref:    fmt.Sprintf("cand-%d", v.Seed),
		Source: string(outcome),
	}, nil
}

// ScriptedAdapter is a verify.ToolAdapter that reads the scripted outcome
// from the candidate's Source.
type ScriptedAdapter struct {
	// Advisory names the tools that behave as advisory for scripting.
	Advisory map[string]bool
}

// NewScriptedAdapter creates an adapter treating the named tools as
// advisory.
func NewScriptedAdapter(advisory ...string) *ScriptedAdapter {
	a := &ScriptedAdapter{Advisory: make(map[string]bool, len(advisory))}
	for _, name := range advisory {
		a.Advisory[name] = true
	}
	return a
}

// Run implements verify.ToolAdapter.
func (a *ScriptedAdapter) Run(ctx context.Context, candidate ir.Candidate, tool string) (ir.ToolResult, error) {
	advisory := a.Advisory[tool]
	outcome := Outcome(candidate.Source)

	switch {
	case outcome == OutcomeToolUnavailable && !advisory:
		return ir.ToolResult{}, fmt.Errorf("%s: %w", tool, ErrScriptedToolMissing)
	case outcome == OutcomeTimeout && !advisory:
		<-ctx.Done()
		return ir.ToolResult{}, ctx.Err()
	case outcome == OutcomeFail && !advisory:
		return ir.ToolResult{Passed: false, Diagnostics: []string{tool + ": scripted failure"}}, nil
	case outcome == OutcomeAdvisoryFail && advisory:
		return ir.ToolResult{Passed: false, Diagnostics: []string{tool + ": scripted advisory failure"}}, nil
	}
	return ir.ToolResult{Passed: true}, nil
}
