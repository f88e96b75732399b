package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/ashc/internal/bayes"
	"github.com/roach88/ashc/internal/causal"
	"github.com/roach88/ashc/internal/engine"
	"github.com/roach88/ashc/internal/ir"
	"github.com/roach88/ashc/internal/ledger"
	"github.com/roach88/ashc/internal/testutil"
	"github.com/roach88/ashc/internal/verify"
)

// Tool names every scenario verifies with.
const (
	CriticalTool = "tests"
	AdvisoryTool = "lint"
)

// DefaultIdentity is the ledger identity for scenario claims.
const DefaultIdentity = "harness"

// Harness runs scenarios with deterministic collaborators.
type Harness struct {
	logger         *slog.Logger
	learner        *causal.Learner
	ledger         *ledger.Ledger
	toolTimeout    time.Duration
	generationRate float64
	sessionSuffix  string
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the engine logger. Logs are discarded by default.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// WithLearner reports nudged runs to a shared causal learner, so effects
// accumulate across scenarios.
func WithLearner(l *causal.Learner) Option {
	return func(h *Harness) {
		h.learner = l
	}
}

// WithLedger settles scenario claims on a shared ledger. Without one, each
// claiming scenario gets a fresh ledger.
func WithLedger(l *ledger.Ledger) Option {
	return func(h *Harness) {
		h.ledger = l
	}
}

// WithToolTimeout replaces DefaultToolTimeout for scenarios that set no
// tool_timeout. Non-positive values are ignored.
func WithToolTimeout(d time.Duration) Option {
	return func(h *Harness) {
		if d > 0 {
			h.toolTimeout = d
		}
	}
}

// WithGenerationRate caps generator calls per second in every session.
// Zero is unlimited.
func WithGenerationRate(perSecond float64) Option {
	return func(h *Harness) {
		h.generationRate = perSecond
	}
}

// WithSessionSuffix names each session "<scenario>@<suffix>" instead of
// the bare scenario name. Run ids change with it, so golden files only
// match unsuffixed sessions.
func WithSessionSuffix(suffix string) Option {
	return func(h *Harness) {
		h.sessionSuffix = suffix
	}
}

// SessionID returns the session id h assigns to a scenario.
func (h *Harness) SessionID(scenarioName string) string {
	if h.sessionSuffix == "" {
		return scenarioName
	}
	return scenarioName + "@" + h.sessionSuffix
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		toolTimeout: DefaultToolTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default Harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run executes one scenario and evaluates its expectations.
//
// An error is returned only when the scenario cannot be set up. A session
// that aborts is reported in the Result and checked against expect.error.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	timeout, err := scenario.toolTimeoutOr(h.toolTimeout)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: tool_timeout: %w", scenario.Name, err)
	}

	verifier, err := verify.NewVerifier(
		testutil.NewScriptedAdapter(AdvisoryTool),
		[]verify.ToolSpec{
			{Name: CriticalTool, Class: ir.ToolCritical},
			{Name: AdvisoryTool, Class: ir.ToolAdvisory},
		},
		verify.Options{Timeout: timeout, AdvisoryPolicy: scenario.AdvisoryPolicy},
	)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	clock := testutil.NewDeterministicClock()
	opts := []engine.CompilerOption{
		engine.WithLogger(h.logger),
		engine.WithSessionIDs(engine.NewFixedGenerator(h.SessionID(scenario.Name))),
		engine.WithNow(clock.Now),
	}
	if scenario.Prior != nil {
		prior, err := bayes.NewBetaPrior(scenario.Prior.Alpha, scenario.Prior.Beta)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: prior: %w", scenario.Name, err)
		}
		opts = append(opts, engine.WithEstimator(engine.PriorEstimatorFunc(
			func(context.Context, engine.Spec) (bayes.BetaPrior, error) { return prior, nil },
		)))
	}
	if h.learner != nil {
		opts = append(opts, engine.WithLearner(h.learner))
	}
	if scenario.Claim != nil {
		l := h.ledger
		if l == nil {
			l, err = ledger.New(DefaultIdentity,
				ledger.WithIDGenerator(testutil.NewSequentialIDs(scenario.Name+"-bet")),
				ledger.WithNow(clock.Now),
			)
			if err != nil {
				return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
			}
		}
		opts = append(opts, engine.WithLedger(l))
	}

	compiler := engine.New(opts...)
	out, err := compiler.Compile(ctx,
		engine.Spec{Text: scenario.specText()},
		testutil.NewScriptedGenerator(scenario.Outcomes...),
		verifier,
		engine.Config{
			Stopping:              scenario.Stopping,
			VerificationThreshold: scenario.VerificationThreshold,
			Parallelism:           scenario.Parallelism,
			Nudges:                scenario.Nudges,
			Claim:                 scenario.Claim,
			GenerationRate:        h.generationRate,
		},
	)

	result := NewResult()
	if err != nil {
		var ce *engine.CompileError
		if !errors.As(err, &ce) {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		result.ErrorCode = ce.Code
		if scenario.Expect.Error == "" {
			result.AddError(fmt.Sprintf("session aborted: %v", err))
			return result, nil
		}
	}
	result.Output = out

	for _, msg := range EvaluateExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}
	return result, nil
}
