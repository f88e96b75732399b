package jobspec

import (
	"errors"
	"fmt"
	"time"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/ashc/internal/bayes"
	"github.com/roach88/ashc/internal/engine"
	"github.com/roach88/ashc/internal/ir"
	"github.com/roach88/ashc/internal/stopping"
	"github.com/roach88/ashc/internal/verify"
)

// DefaultParallelism is used when a job omits parallelism.
const DefaultParallelism = 1

// CompileJob parses a CUE value into a Job.
// Uses the CUE SDK's Go API directly.
//
// The value should be the job struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`job: reverse: { ... }`)
//	job, err := CompileJob(v.LookupPath(cue.ParsePath("job.reverse")))
func CompileJob(v cue.Value) (*Job, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	job := &Job{
		VerificationThreshold: engine.DefaultVerificationThreshold,
		Parallelism:           DefaultParallelism,
		AdvisoryPolicy:        verify.AdvisoryIgnore,
	}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		job.Name = labels[len(labels)-1].String()
	}

	// spec (required)
	specVal := v.LookupPath(cue.ParsePath("spec"))
	if !specVal.Exists() {
		return nil, &CompileError{Field: "spec", Message: "spec is required", Pos: v.Pos()}
	}
	spec, err := specVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	if spec == "" {
		return nil, &CompileError{Field: "spec", Message: "spec must not be empty", Pos: specVal.Pos()}
	}
	job.Spec = spec

	if thVal := v.LookupPath(cue.ParsePath("verification_threshold")); thVal.Exists() {
		th, err := thVal.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if th < 0 || th > 1 {
			return nil, &CompileError{
				Field:   "verification_threshold",
				Message: fmt.Sprintf("%v must be in [0,1]", th),
				Pos:     thVal.Pos(),
			}
		}
		job.VerificationThreshold = th
	}

	// timeout (required): every tool call is bounded.
	job.Timeout, err = parseTimeout(v)
	if err != nil {
		return nil, err
	}

	if parVal := v.LookupPath(cue.ParsePath("parallelism")); parVal.Exists() {
		par, err := parVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if par <= 0 {
			return nil, &CompileError{Field: "parallelism", Message: "parallelism must be positive", Pos: parVal.Pos()}
		}
		job.Parallelism = int(par)
	}

	job.Stopping, err = parseStopping(v)
	if err != nil {
		return nil, err
	}

	job.Tools, err = parseTools(v)
	if err != nil {
		return nil, err
	}

	if polVal := v.LookupPath(cue.ParsePath("advisory_policy")); polVal.Exists() {
		pol, err := polVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		policy := verify.AdvisoryPolicy(pol)
		if pol == "" || !policy.Valid() {
			return nil, &CompileError{
				Field:   "advisory_policy",
				Message: fmt.Sprintf("unknown policy %q (want ignore or require)", pol),
				Pos:     polVal.Pos(),
			}
		}
		job.AdvisoryPolicy = policy
	}

	job.Nudges, err = parseNudges(v)
	if err != nil {
		return nil, err
	}

	job.Prior, err = parsePrior(v)
	if err != nil {
		return nil, err
	}

	return job, nil
}

func parseTimeout(v cue.Value) (time.Duration, error) {
	tVal := v.LookupPath(cue.ParsePath("timeout"))
	if !tVal.Exists() {
		return 0, &CompileError{Field: "timeout", Message: "timeout is required", Pos: v.Pos()}
	}
	raw, err := tVal.String()
	if err != nil {
		return 0, formatCUEError(err)
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &CompileError{Field: "timeout", Message: fmt.Sprintf("invalid duration %q", raw), Pos: tVal.Pos()}
	}
	if d <= 0 {
		return 0, &CompileError{Field: "timeout", Message: "timeout must be positive", Pos: tVal.Pos()}
	}
	return d, nil
}

// parseStopping reads the stopping block and validates it with
// stopping.Config so the rules live in one place.
func parseStopping(v cue.Value) (stopping.Config, error) {
	sVal := v.LookupPath(cue.ParsePath("stopping"))
	if !sVal.Exists() {
		return stopping.Config{}, &CompileError{Field: "stopping", Message: "stopping is required", Pos: v.Pos()}
	}

	var cfg stopping.Config
	for _, f := range []struct {
		name     string
		optional bool
		set      func(cue.Value) error
	}{
		{"n_diff_margin", false, func(fv cue.Value) error {
			n, err := fv.Int64()
			cfg.NDiffMargin = int(n)
			return err
		}},
		{"max_samples", false, func(fv cue.Value) error {
			n, err := fv.Int64()
			cfg.MaxSamples = int(n)
			return err
		}},
		{"confidence_threshold", false, func(fv cue.Value) error {
			x, err := fv.Float64()
			cfg.ConfidenceThreshold = x
			return err
		}},
		{"tier_boundary", true, func(fv cue.Value) error {
			x, err := fv.Float64()
			cfg.TierBoundary = x
			return err
		}},
	} {
		fv := sVal.LookupPath(cue.ParsePath(f.name))
		if !fv.Exists() {
			if f.optional {
				continue
			}
			return stopping.Config{}, &CompileError{
				Field:   "stopping." + f.name,
				Message: f.name + " is required",
				Pos:     sVal.Pos(),
			}
		}
		if err := f.set(fv); err != nil {
			return stopping.Config{}, formatCUEError(err)
		}
	}

	validated, err := cfg.Validated()
	if err != nil {
		var ice *stopping.InvalidConfigError
		if errors.As(err, &ice) {
			return stopping.Config{}, &CompileError{
				Field:   "stopping." + ice.Field,
				Message: fmt.Sprintf("%v %s", ice.Value, ice.Reason),
				Pos:     sVal.LookupPath(cue.ParsePath(ice.Field)).Pos(),
			}
		}
		return stopping.Config{}, err
	}
	return validated, nil
}

func parseTools(v cue.Value) ([]verify.ToolSpec, error) {
	toolsVal := v.LookupPath(cue.ParsePath("tools"))
	if !toolsVal.Exists() {
		return nil, &CompileError{Field: "tools", Message: "tools are required", Pos: v.Pos()}
	}

	iter, err := toolsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var (
		tools    []verify.ToolSpec
		critical bool
	)
	for iter.Next() {
		name := iter.Label()
		raw, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		class := ir.ToolClass(raw)
		if !class.Valid() {
			return nil, &CompileError{
				Field:   "tools." + name,
				Message: fmt.Sprintf("unknown tool class %q (want critical or advisory)", raw),
				Pos:     iter.Value().Pos(),
			}
		}
		critical = critical || class == ir.ToolCritical
		tools = append(tools, verify.ToolSpec{Name: name, Class: class})
	}

	if !critical {
		return nil, &CompileError{
			Field:   "tools",
			Message: "at least one critical tool is required",
			Pos:     toolsVal.Pos(),
		}
	}
	return tools, nil
}

func parseNudges(v cue.Value) ([]string, error) {
	nVal := v.LookupPath(cue.ParsePath("nudges"))
	if !nVal.Exists() {
		return nil, nil
	}
	iter, err := nVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var nudges []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if s == "" {
			return nil, &CompileError{Field: "nudges", Message: "nudge must not be empty", Pos: iter.Value().Pos()}
		}
		nudges = append(nudges, s)
	}
	return nudges, nil
}

func parsePrior(v cue.Value) (*bayes.BetaPrior, error) {
	pVal := v.LookupPath(cue.ParsePath("prior"))
	if !pVal.Exists() {
		return nil, nil
	}
	alpha, err := pVal.LookupPath(cue.ParsePath("alpha")).Float64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	beta, err := pVal.LookupPath(cue.ParsePath("beta")).Float64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	p, err := bayes.NewBetaPrior(alpha, beta)
	if err != nil {
		return nil, &CompileError{Field: "prior", Message: err.Error(), Pos: pVal.Pos()}
	}
	return &p, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsCompileError reports whether err wraps a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// First error with a position wins.
	first := errs[0]
	positions := cueerrors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
