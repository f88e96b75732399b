// Package jobspec compiles CUE job files into compile jobs.
//
// A job file declares one or more jobs under the top-level "job" struct:
//
//	job: reverse: {
//		spec:    "reverse a UTF-8 string"
//		timeout: "30s"
//		stopping: {n_diff_margin: 3, max_samples: 20, confidence_threshold: 0.9}
//		tools: {tests: "critical", lint: "advisory"}
//	}
//
// Optional fields take their defaults when absent: verification_threshold
// 0.8, parallelism 1, advisory_policy "ignore".
package jobspec

import (
	"context"
	"time"

	"github.com/roach88/ashc/internal/bayes"
	"github.com/roach88/ashc/internal/engine"
	"github.com/roach88/ashc/internal/stopping"
	"github.com/roach88/ashc/internal/verify"
)

// Job is one compiled job declaration.
type Job struct {
	Name                  string
	Spec                  string
	VerificationThreshold float64
	Timeout               time.Duration
	Parallelism           int
	Stopping              stopping.Config
	Tools                 []verify.ToolSpec // declaration order
	AdvisoryPolicy        verify.AdvisoryPolicy
	Nudges                []string
	Prior                 *bayes.BetaPrior // nil means uniform
}

// EngineSpec returns the spec text as an engine.Spec.
func (j *Job) EngineSpec() engine.Spec {
	return engine.Spec{Text: j.Spec}
}

// EngineConfig returns the sampling configuration for engine.Compile.
func (j *Job) EngineConfig() engine.Config {
	return engine.Config{
		Stopping:              j.Stopping,
		VerificationThreshold: j.VerificationThreshold,
		Parallelism:           j.Parallelism,
		Nudges:                j.Nudges,
	}
}

// VerifyOptions returns the verifier options for verify.NewVerifier.
func (j *Job) VerifyOptions() verify.Options {
	return verify.Options{Timeout: j.Timeout, AdvisoryPolicy: j.AdvisoryPolicy}
}

// Estimator returns a prior estimator yielding the job's prior, or nil when
// the job has none.
func (j *Job) Estimator() engine.PriorEstimator {
	if j.Prior == nil {
		return nil
	}
	p := *j.Prior
	return engine.PriorEstimatorFunc(func(context.Context, engine.Spec) (bayes.BetaPrior, error) {
		return p, nil
	})
}
