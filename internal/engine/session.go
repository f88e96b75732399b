package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/roach88/ashc/internal/bayes"
	"github.com/roach88/ashc/internal/ir"
	"github.com/roach88/ashc/internal/stopping"
	"github.com/roach88/ashc/internal/verify"
)

// session is the state of one Compile call.
//
// Workers generate and verify samples concurrently and hand completions to
// a completionQueue. The collector (the goroutine running run) is the only
// writer of evidence, state, and decision; it also decides when the next
// sample is dispatched, so at most Parallelism samples are ever in flight
// and never more than MaxSamples are started.
type session struct {
	c        *Compiler
	spec     Spec
	id       string
	gen      Generator
	verifier Verifier
	cfg      Config
	ctrl     *stopping.Controller
	clock    *Clock
	limiter  *rate.Limiter

	// Collector-owned.
	state      stopping.State
	evidence   ir.Evidence
	decision   stopping.Decision
	executable *Candidate
	execNudge  string
	late       int

	// Written by workers.
	refused atomic.Int64
}

func newSession(c *Compiler, spec Spec, id string, gen Generator, verifier Verifier, cfg Config, ctrl *stopping.Controller, prior bayes.BetaPrior) *session {
	return &session{
		c:        c,
		spec:     spec,
		id:       id,
		gen:      gen,
		verifier: verifier,
		cfg:      cfg,
		ctrl:     ctrl,
		clock:    NewClock(),
		limiter:  newLimiter(cfg.GenerationRate),
		state:    stopping.NewState(prior),
		evidence: ir.NewEvidence(spec.ID, prior),
	}
}

// run samples until a stop decision, a fatal error, or cancellation.
func (s *session) run(ctx context.Context) error {
	s.decision = s.ctrl.ShouldStop(s.state)
	if s.decision.Stop {
		// An informed prior was already decisive.
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	queue := newCompletionQueue()
	work := make(chan Variation)

	for i := 0; i < s.cfg.Parallelism; i++ {
		g.Go(func() error {
			return s.worker(gctx, work, queue)
		})
	}

	maxSamples := s.ctrl.Config().MaxSamples
	dispatched, inFlight := 0, 0
	dispatch := func() bool {
		select {
		case work <- s.variation(dispatched):
			dispatched++
			inFlight++
			return true
		case <-gctx.Done():
			return false
		}
	}

	for inFlight < s.cfg.Parallelism && dispatched < maxSamples {
		if !dispatch() {
			break
		}
	}

collect:
	for !s.decision.Stop {
		select {
		case <-gctx.Done():
			break collect
		case <-queue.Wait():
		}

		for !s.decision.Stop {
			if gctx.Err() != nil {
				break collect
			}
			comp, ok := queue.TryDequeue()
			if !ok {
				break
			}
			inFlight--
			s.record(comp)

			if !s.decision.Stop && dispatched < maxSamples {
				if !dispatch() {
					break collect
				}
			}
		}
	}

	// Cooperative cancellation of whatever is still in flight. Results that
	// make it back anyway are refused by the closed queue.
	cancel()
	close(work)
	s.late += len(queue.Close())
	werr := g.Wait()
	s.late += int(s.refused.Load())
	if s.late > 0 {
		lateResultsDiscarded.Add(float64(s.late))
	}

	if s.decision.Stop {
		if werr != nil {
			s.c.logger.Warn("error after stop decision ignored",
				"session_id", s.id,
				"error", werr,
			)
		}
		return nil
	}

	switch {
	case verify.IsToolUnavailableError(werr):
		return &CompileError{
			Code:      ErrCodeToolUnavailable,
			Message:   "verification tool unavailable",
			SpecID:    s.spec.ID,
			SessionID: s.id,
			Err:       werr,
		}
	case ctx.Err() != nil:
		return &CompileError{
			Code:      ErrCodeCanceled,
			Message:   fmt.Sprintf("canceled after %d samples", s.state.SamplesTaken),
			SpecID:    s.spec.ID,
			SessionID: s.id,
			Err:       ctx.Err(),
		}
	case werr != nil:
		return &CompileError{
			Code:      ErrCodeSampleFailed,
			Message:   fmt.Sprintf("sample failed after %d samples", s.state.SamplesTaken),
			SpecID:    s.spec.ID,
			SessionID: s.id,
			Err:       werr,
		}
	}
	return &CompileError{
		Code:      ErrCodeSampleFailed,
		Message:   "session ended without a stop decision",
		SpecID:    s.spec.ID,
		SessionID: s.id,
	}
}

// worker runs samples until work is closed or ctx ends. It returns an error
// only for fatal sample failures.
func (s *session) worker(ctx context.Context, work <-chan Variation, queue *completionQueue) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case v, ok := <-work:
			if !ok {
				return nil
			}
			comp, err := s.sample(ctx, v)
			if err != nil {
				if ctx.Err() != nil && !verify.IsToolUnavailableError(err) {
					return nil
				}
				return err
			}
			if !queue.Enqueue(comp) {
				s.refused.Add(1)
				s.c.logger.Debug("late result discarded",
					"session_id", s.id,
					"seed", v.Seed,
				)
			}
		}
	}
}

// sample generates and verifies one candidate. Generation failures are
// folded into the completion; only verifier errors and cancellation are
// returned.
func (s *session) sample(ctx context.Context, v Variation) (completion, error) {
	start := time.Now()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return completion{}, err
		}
	}

	cand, err := s.gen.Generate(ctx, s.spec, v)
	if err != nil {
		if ctx.Err() != nil {
			return completion{}, ctx.Err()
		}
		return completion{Variation: v, GenErr: err, Duration: time.Since(start)}, nil
	}

	verdict, err := s.verifier.Verify(ctx, cand)
	if err != nil {
		return completion{}, err
	}

	return completion{
		Variation: v,
		Candidate: cand,
		Verdict:   verdict,
		Duration:  time.Since(start),
	}, nil
}

func (s *session) variation(i int) Variation {
	v := Variation{Seed: int64(i)}
	if n := len(s.cfg.Nudges); n > 0 {
		v.Nudge = s.cfg.Nudges[i%n]
	}
	return v
}

// record appends one completion. Collector only.
func (s *session) record(comp completion) {
	priorBefore := s.state.Prior
	passed := comp.GenErr == nil && comp.Verdict.Passed
	seq := s.clock.Next()

	run := ir.Run{
		ID:            ir.MustRunID(s.id, seq, comp.Candidate.Ref, passed),
		SessionID:     s.id,
		Seq:           seq,
		VariationSeed: comp.Variation.Seed,
		Nudge:         comp.Variation.Nudge,
		CandidateRef:  comp.Candidate.Ref,
		ToolResults:   comp.Verdict.Results,
		Passed:        passed,
		TimedOut:      comp.Verdict.TimedOut,
		Timestamp:     s.c.now(),
	}
	if comp.GenErr != nil {
		run.GenerationError = comp.GenErr.Error()
	}

	s.evidence = s.evidence.Append(run)
	s.state = s.state.Record(passed)
	s.decision = s.ctrl.ShouldStop(s.state)

	if passed {
		cand := comp.Candidate
		s.executable = &cand
		s.execNudge = comp.Variation.Nudge
	}

	samplesTotal.WithLabelValues(run.Outcome()).Inc()
	sampleDuration.Observe(comp.Duration.Seconds())
	s.c.logger.Debug("run appended",
		"session_id", s.id,
		"seq", seq,
		"outcome", run.Outcome(),
		"successes", s.state.Successes,
		"failures", s.state.Failures,
	)

	if s.c.learner != nil && run.Nudge != "" {
		if _, err := s.c.learner.Observe(run.Nudge, priorBefore, run); err != nil {
			s.c.logger.Warn("causal observation rejected",
				"session_id", s.id,
				"nudge", run.Nudge,
				"error", err,
			)
		}
	}
}

func (s *session) output() *Output {
	score := s.evidence.EquivalenceScore()
	out := &Output{
		SessionID:        s.id,
		Spec:             s.spec,
		Evidence:         s.evidence,
		EquivalenceScore: score,
		Verified:         score >= s.cfg.VerificationThreshold,
		Executable:       s.executable,
		Decision:         s.decision,
		LateDiscarded:    s.late,
	}

	posterior := s.state.Prior
	if lo, hi, err := posterior.CredibleInterval(DefaultCredibleLevel); err == nil {
		out.CredibleInterval = Interval{Level: DefaultCredibleLevel, Lo: lo, Hi: hi}
	}

	if s.c.learner != nil && s.execNudge != "" {
		forecast := s.c.learner.Predict(s.execNudge)
		out.NudgeForecast = &forecast
	}
	return out
}
