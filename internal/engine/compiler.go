package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/roach88/ashc/internal/bayes"
	"github.com/roach88/ashc/internal/causal"
	"github.com/roach88/ashc/internal/ir"
	"github.com/roach88/ashc/internal/ledger"
	"github.com/roach88/ashc/internal/stopping"
)

// Compiler runs evidence-accumulation sessions.
//
// A Compiler holds only shared collaborators (learner, ledger, logger) and
// is safe for concurrent Compile calls. Each call owns its own session
// state; the learner and ledger serialize their own writes.
type Compiler struct {
	logger    *slog.Logger
	estimator PriorEstimator
	learner   *causal.Learner
	ledger    *ledger.Ledger
	ids       SessionIDGenerator
	now       func() time.Time
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) CompilerOption {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// WithEstimator seeds sessions with an informed prior.
func WithEstimator(est PriorEstimator) CompilerOption {
	return func(c *Compiler) {
		c.estimator = est
	}
}

// WithLearner reports every nudged run to a causal learner and enables
// Output.NudgeForecast.
func WithLearner(l *causal.Learner) CompilerOption {
	return func(c *Compiler) {
		c.learner = l
	}
}

// WithLedger enables Config.Claim and discounts Output.ReportedConfidence.
func WithLedger(l *ledger.Ledger) CompilerOption {
	return func(c *Compiler) {
		c.ledger = l
	}
}

// WithSessionIDs sets the session id source. Default: UUIDv7Generator.
func WithSessionIDs(ids SessionIDGenerator) CompilerOption {
	return func(c *Compiler) {
		c.ids = ids
	}
}

// WithNow sets the wall clock used for run timestamps.
func WithNow(now func() time.Time) CompilerOption {
	return func(c *Compiler) {
		c.now = now
	}
}

// New creates a Compiler.
func New(opts ...CompilerOption) *Compiler {
	c := &Compiler{
		logger: slog.Default(),
		ids:    UUIDv7Generator{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Compile samples candidates for spec until the stopping controller says
// stop, and returns the accumulated evidence and verdict.
//
// An unverified Output is a normal result. The only errors are
// *CompileError: invalid configuration (before any sampling), an
// unavailable verification tool, any other verifier failure, or
// cancellation of ctx before a stop decision.
func (c *Compiler) Compile(ctx context.Context, spec Spec, gen Generator, verifier Verifier, cfg Config) (*Output, error) {
	if spec.ID == "" {
		spec.ID = ir.SpecID(spec.Text)
	}

	cfg, ctrl, err := c.prepare(spec, gen, verifier, cfg)
	if err != nil {
		return nil, err
	}

	sessionID := c.ids.Generate()
	ctx, span := tracer.Start(ctx, "engine.Compile",
		trace.WithAttributes(
			attribute.String("ashc.spec_id", spec.ID),
			attribute.String("ashc.session_id", sessionID),
			attribute.Int("ashc.parallelism", cfg.Parallelism),
			attribute.Int("ashc.max_samples", ctrl.Config().MaxSamples),
		),
	)
	defer span.End()

	prior := c.estimatePrior(ctx, spec)

	var bet *ledger.Bet
	if cfg.Claim != nil {
		b, err := c.ledger.PlaceBet(cfg.Claim.Confidence, cfg.Claim.Stake, cfg.Claim.Factors)
		if err != nil {
			cerr := invalidConfig(spec.ID, "claim rejected", err)
			cerr.SessionID = sessionID
			span.RecordError(cerr)
			span.SetStatus(codes.Error, cerr.Error())
			return nil, cerr
		}
		bet = &b
	}

	c.logger.Info("compile started",
		"spec_id", spec.ID,
		"session_id", sessionID,
		"prior", prior.String(),
		"parallelism", cfg.Parallelism,
	)

	s := newSession(c, spec, sessionID, gen, verifier, cfg, ctrl, prior)
	if err := s.run(ctx); err != nil {
		if bet != nil {
			// An aborted session has no outcome to settle against.
			if cerr := c.ledger.Cancel(bet.ID); cerr != nil {
				c.logger.Warn("claim cancel failed", "bet_id", bet.ID, "error", cerr)
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error("compile aborted",
			"spec_id", spec.ID,
			"session_id", sessionID,
			"samples", s.state.SamplesTaken,
			"error", err,
		)
		return nil, err
	}

	out := s.output()

	if bet != nil {
		settlement, err := c.ledger.Settle(bet.ID, out.Verified)
		if err != nil {
			// The bet was placed by this call; failing to settle it is a bug.
			return nil, fmt.Errorf("engine: settle claim %s: %w", bet.ID, err)
		}
		out.Settlement = &settlement
	}
	out.ReportedConfidence = out.EquivalenceScore
	if c.ledger != nil {
		out.ReportedConfidence = c.ledger.Discount(out.EquivalenceScore)
	}

	sessionsTotal.WithLabelValues(strconv.FormatBool(out.Verified), string(out.Decision.Reason)).Inc()
	span.SetAttributes(
		attribute.Int("ashc.samples", out.Evidence.Total()),
		attribute.Float64("ashc.equivalence_score", out.EquivalenceScore),
		attribute.Bool("ashc.verified", out.Verified),
		attribute.String("ashc.stop_reason", string(out.Decision.Reason)),
	)
	span.SetStatus(codes.Ok, "")

	c.logger.Info("compile stopped",
		"spec_id", spec.ID,
		"session_id", sessionID,
		"stop_reason", out.Decision.Reason,
		"samples", out.Evidence.Total(),
		"successes", out.Evidence.Successes(),
		"failures", out.Evidence.Failures(),
		"equivalence_score", out.EquivalenceScore,
		"verified", out.Verified,
		"late_discarded", out.LateDiscarded,
	)
	return out, nil
}

// prepare validates everything Compile needs before a session starts and
// applies defaults.
func (c *Compiler) prepare(spec Spec, gen Generator, verifier Verifier, cfg Config) (Config, *stopping.Controller, error) {
	if spec.Text == "" {
		return cfg, nil, invalidConfig(spec.ID, "spec text is empty", nil)
	}
	if gen == nil {
		return cfg, nil, invalidConfig(spec.ID, "generator is nil", nil)
	}
	if verifier == nil {
		return cfg, nil, invalidConfig(spec.ID, "verifier is nil", nil)
	}
	if err := validate.Struct(cfg); err != nil {
		return cfg, nil, invalidConfig(spec.ID, "engine config", err)
	}
	if cfg.Claim != nil && c.ledger == nil {
		return cfg, nil, invalidConfig(spec.ID, "claim set but compiler has no ledger", nil)
	}

	ctrl, err := stopping.NewController(cfg.Stopping)
	if err != nil {
		return cfg, nil, invalidConfig(spec.ID, "stopping config", err)
	}

	if cfg.VerificationThreshold == 0 {
		cfg.VerificationThreshold = DefaultVerificationThreshold
	}
	if cfg.Parallelism == 0 {
		cfg.Parallelism = 1
	}
	cfg.Stopping = ctrl.Config()
	return cfg, ctrl, nil
}

func (c *Compiler) estimatePrior(ctx context.Context, spec Spec) bayes.BetaPrior {
	if c.estimator == nil {
		return bayes.Uniform()
	}
	prior, err := c.estimator.Estimate(ctx, spec)
	if err == nil {
		err = prior.Validate()
	}
	if err != nil {
		c.logger.Warn("prior estimate failed, using uniform prior",
			"spec_id", spec.ID,
			"error", err,
		)
		return bayes.Uniform()
	}
	return prior
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}
