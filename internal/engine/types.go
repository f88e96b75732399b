package engine

import (
	"context"

	"github.com/roach88/ashc/internal/bayes"
	"github.com/roach88/ashc/internal/causal"
	"github.com/roach88/ashc/internal/ir"
	"github.com/roach88/ashc/internal/ledger"
	"github.com/roach88/ashc/internal/stopping"
	"github.com/roach88/ashc/internal/verify"
)

// Spec is the specification being compiled. ID is derived from Text when
// empty.
type Spec struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Candidate is a generated implementation.
type Candidate = ir.Candidate

// Variation distinguishes one sample's generation request from another's.
type Variation struct {
	Seed  int64  `json:"seed"`
	Nudge string `json:"nudge,omitempty"`
}

// Generator produces candidate implementations of a spec.
//
// A returned error is a generation failure: it is recorded as a failed run
// and sampling continues. Generators must honor ctx.
type Generator interface {
	Generate(ctx context.Context, spec Spec, v Variation) (Candidate, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, spec Spec, v Variation) (Candidate, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, spec Spec, v Variation) (Candidate, error) {
	return f(ctx, spec, v)
}

// Verifier checks one candidate. *verify.Verifier is the production
// implementation.
type Verifier interface {
	Verify(ctx context.Context, candidate Candidate) (verify.Verdict, error)
}

// PriorEstimator seeds a session with an informed prior. Without one, or
// when it fails, sessions start from Beta(1,1).
type PriorEstimator interface {
	Estimate(ctx context.Context, spec Spec) (bayes.BetaPrior, error)
}

// PriorEstimatorFunc adapts a function to PriorEstimator.
type PriorEstimatorFunc func(ctx context.Context, spec Spec) (bayes.BetaPrior, error)

// Estimate calls f.
func (f PriorEstimatorFunc) Estimate(ctx context.Context, spec Spec) (bayes.BetaPrior, error) {
	return f(ctx, spec)
}

// Claim is a confidence claim about the session's outcome, placed as a bet
// before sampling and settled with the verified flag afterwards.
type Claim struct {
	Confidence float64  `json:"confidence" yaml:"confidence"`
	Stake      float64  `json:"stake" yaml:"stake"`
	Factors    []string `json:"factors,omitempty" yaml:"factors,omitempty"`
}

// DefaultVerificationThreshold is used when Config.VerificationThreshold is
// zero.
const DefaultVerificationThreshold = 0.8

// DefaultCredibleLevel is the level of Output.CredibleInterval.
const DefaultCredibleLevel = 0.95

// Config is the per-session configuration.
type Config struct {
	Stopping stopping.Config `validate:"-"`

	// VerificationThreshold is the minimum equivalence score for Verified.
	// Zero means DefaultVerificationThreshold.
	VerificationThreshold float64 `validate:"gte=0,lte=1"`

	// Parallelism is the number of samples in flight. Zero means 1.
	Parallelism int `validate:"gte=0"`

	// GenerationRate caps generator calls per second. Zero is unlimited.
	GenerationRate float64 `validate:"gte=0"`

	// Nudges are cycled across samples by seed. Empty means no nudge.
	Nudges []string `validate:"-"`

	// Claim, when set, requires a ledger on the Compiler.
	Claim *Claim `validate:"-"`
}

// Interval is an equal-tailed credible interval of the final posterior.
type Interval struct {
	Level float64 `json:"level"`
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
}

// Output is the result of one compile session.
type Output struct {
	SessionID string `json:"session_id"`
	Spec      Spec   `json:"spec"`

	Evidence ir.Evidence `json:"evidence"`

	// EquivalenceScore is the posterior mean of the session. It is never
	// adjusted by causal or credibility signals.
	EquivalenceScore float64 `json:"equivalence_score"`

	// ReportedConfidence is EquivalenceScore discounted by the ledger's
	// credibility, or equal to it without a ledger.
	ReportedConfidence float64 `json:"reported_confidence"`

	Verified bool `json:"verified"`

	// Executable is the most recent passing candidate, nil if none passed.
	Executable *Candidate `json:"executable,omitempty"`

	Decision         stopping.Decision `json:"decision"`
	CredibleInterval Interval          `json:"credible_interval"`

	// NudgeForecast is the causal graph's prediction for the nudge that
	// produced Executable. It is advisory and separate from the score.
	NudgeForecast *causal.PredictedEffect `json:"nudge_forecast,omitempty"`

	Settlement *ledger.BetSettlement `json:"settlement,omitempty"`

	// LateDiscarded counts sample results that completed after the stop
	// decision and were dropped.
	LateDiscarded int `json:"late_discarded"`
}
