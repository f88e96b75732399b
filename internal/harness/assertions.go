package harness

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/ashc/internal/ir"
)

// AssertionError is returned when an expectation fails.
// It includes the recorded runs to help debug the failure.
type AssertionError struct {
	Field    string   // Expectation field, e.g. "samples"
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Runs     []ir.Run // Recorded runs for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Expectation failed: %s\n", e.Field)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Runs) > 0 {
		fmt.Fprintf(&buf, "\nRuns:\n")
		for _, run := range e.Runs {
			fmt.Fprintf(&buf, "  [%d] seed=%d %s", run.Seq, run.VariationSeed, run.Outcome())
			if run.GenerationError != "" {
				fmt.Fprintf(&buf, " (%s)", run.GenerationError)
			}
			fmt.Fprintln(&buf)
		}
	}

	return buf.String()
}

// EvaluateExpectations checks exp against result and returns one message
// per failed expectation.
func EvaluateExpectations(result *Result, exp Expectation) []string {
	var errs []string
	fail := func(err error) {
		errs = append(errs, err.Error())
	}

	if exp.Error != "" {
		if result.ErrorCode != exp.Error {
			actual := "session completed"
			if result.ErrorCode != "" {
				actual = string(result.ErrorCode)
			}
			fail(&AssertionError{Field: "error", Expected: string(exp.Error), Actual: actual})
		}
		// An aborted session has no output to check further.
		return errs
	}

	out := result.Output
	if out == nil {
		return []string{"no session output"}
	}
	runs := out.Evidence.Runs

	checkInt := func(field string, want *int, got int) {
		if want != nil && *want != got {
			fail(&AssertionError{Field: field, Expected: fmt.Sprint(*want), Actual: fmt.Sprint(got), Runs: runs})
		}
	}
	checkInt("samples", exp.Samples, out.Evidence.Total())
	checkInt("successes", exp.Successes, out.Evidence.Successes())
	checkInt("failures", exp.Failures, out.Evidence.Failures())

	if exp.Verified != nil && *exp.Verified != out.Verified {
		fail(&AssertionError{
			Field:    "verified",
			Expected: fmt.Sprint(*exp.Verified),
			Actual:   fmt.Sprintf("%v (score %.4f)", out.Verified, out.EquivalenceScore),
			Runs:     runs,
		})
	}

	if exp.StopReason != "" && exp.StopReason != out.Decision.Reason {
		fail(&AssertionError{
			Field:    "stop_reason",
			Expected: string(exp.StopReason),
			Actual:   string(out.Decision.Reason),
			Runs:     runs,
		})
	}

	if exp.Score != nil {
		tol := exp.Tolerance
		if tol == 0 {
			tol = DefaultTolerance
		}
		if math.Abs(out.EquivalenceScore-*exp.Score) > tol {
			fail(&AssertionError{
				Field:    "score",
				Expected: fmt.Sprintf("%.4f +/- %g", *exp.Score, tol),
				Actual:   fmt.Sprintf("%.4f", out.EquivalenceScore),
				Runs:     runs,
			})
		}
	}

	if exp.Executable != "" {
		actual := "none"
		if out.Executable != nil {
			actual = out.Executable.Ref
		}
		if actual != exp.Executable {
			fail(&AssertionError{Field: "executable", Expected: exp.Executable, Actual: actual, Runs: runs})
		}
	}

	return errs
}
