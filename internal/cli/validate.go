package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ashc/internal/bayes"
	"github.com/roach88/ashc/internal/ir"
	"github.com/roach88/ashc/internal/jobspec"
)

// JobSummary describes one valid job as the engine and verifier will see
// it.
type JobSummary struct {
	Name                  string   `json:"name"`
	SpecID                string   `json:"spec_id"`
	Tools                 []string `json:"tools"`
	MaxSamples            int      `json:"max_samples"`
	Parallelism           int      `json:"parallelism"`
	VerificationThreshold float64  `json:"verification_threshold"`
	Timeout               string   `json:"timeout"`
	AdvisoryPolicy        string   `json:"advisory_policy"`
	Prior                 string   `json:"prior"`
	Nudges                int      `json:"nudges,omitempty"`
}

// ValidationError is one job compile error.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Jobs   []JobSummary      `json:"jobs,omitempty"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <jobs-dir>",
		Short: "Validate CUE job files",
		Long: `Compile every job declared in a directory of CUE files and report
all errors with their source positions.

Exit codes:
  0 - All jobs valid
  1 - One or more jobs invalid
  2 - Command error (directory missing, no CUE files)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, jobsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	info, err := os.Stat(jobsDir)
	if err != nil || !info.IsDir() {
		return outputValidateError(formatter, ErrCodeNotFound, fmt.Sprintf("jobs directory not found: %s", jobsDir))
	}
	files, err := jobspec.FindCUEFiles(jobsDir)
	if err != nil {
		return outputValidateError(formatter, ErrCodeGeneric, fmt.Sprintf("scanning %s: %v", jobsDir, err))
	}
	if len(files) == 0 {
		return outputValidateError(formatter, ErrCodeNoFiles, fmt.Sprintf("no CUE files found in %s", jobsDir))
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", len(files), jobsDir)

	jobs, errs := jobspec.LoadDir(jobsDir)

	result := ValidationResult{Valid: len(errs) == 0}
	for _, job := range jobs {
		formatter.VerboseLog("Validated job: %s", job.Name)
		summary, err := summarizeJob(cmd.Context(), &job)
		if err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Code:    ErrCodeInvalidJob,
				Field:   "job." + job.Name + ".prior",
				Message: err.Error(),
			})
			continue
		}
		result.Jobs = append(result.Jobs, summary)
	}
	for _, err := range errs {
		result.Errors = append(result.Errors, toValidationError(err))
	}
	nerrs := len(result.Errors)

	if formatter.Format == "json" {
		if result.Valid {
			return formatter.JSON("ok", result, nil)
		}
		if err := formatter.JSON("error", result, &CLIError{
			Code:    result.Errors[0].Code,
			Message: result.Errors[0].Message,
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", nerrs))
	}

	w := formatter.Writer
	if !result.Valid {
		fmt.Fprintln(w, "✗ Validation failed")
		fmt.Fprintln(w)
		for _, e := range result.Errors {
			if e.Line > 0 {
				fmt.Fprintf(w, "%s:%d\n", e.File, e.Line)
			}
			fmt.Fprintf(w, "  %s: %s\n\n", e.Code, e.Message)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", nerrs))
	}

	for _, job := range result.Jobs {
		fmt.Fprintf(w, "  %s: %d tool(s), max %d samples, timeout %s, prior %s\n",
			job.Name, len(job.Tools), job.MaxSamples, job.Timeout, job.Prior)
	}
	fmt.Fprintf(w, "✓ All %d job(s) valid\n", len(result.Jobs))
	return nil
}

// summarizeJob derives the summary from the same values a compile would
// be started with.
func summarizeJob(ctx context.Context, job *jobspec.Job) (JobSummary, error) {
	spec := job.EngineSpec()
	cfg := job.EngineConfig()
	vopts := job.VerifyOptions()

	prior := bayes.Uniform()
	if est := job.Estimator(); est != nil {
		p, err := est.Estimate(ctx, spec)
		if err != nil {
			return JobSummary{}, err
		}
		prior = p
	}

	summary := JobSummary{
		Name:                  job.Name,
		SpecID:                ir.SpecID(spec.Text),
		MaxSamples:            cfg.Stopping.MaxSamples,
		Parallelism:           cfg.Parallelism,
		VerificationThreshold: cfg.VerificationThreshold,
		Timeout:               vopts.Timeout.String(),
		AdvisoryPolicy:        string(vopts.AdvisoryPolicy),
		Prior:                 prior.String(),
		Nudges:                len(cfg.Nudges),
	}
	for _, tool := range job.Tools {
		summary.Tools = append(summary.Tools, fmt.Sprintf("%s (%s)", tool.Name, tool.Class))
	}
	return summary, nil
}

func toValidationError(err error) ValidationError {
	var ce *jobspec.CompileError
	if errors.As(err, &ce) {
		ve := ValidationError{
			Code:    ErrCodeInvalidJob,
			Field:   ce.Field,
			Message: err.Error(),
		}
		if ce.Pos.IsValid() {
			ve.File = ce.Pos.Filename()
			ve.Line = ce.Pos.Line()
		}
		return ve
	}
	return ValidationError{Code: ErrCodeGeneric, Message: err.Error()}
}

// outputValidateError reports a command-level error (exit code 2).
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}
