package harness

import "github.com/roach88/ashc/internal/engine"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation matched.
	Pass bool `json:"pass"`

	// Output is the session output, nil when the session aborted.
	Output *engine.Output `json:"output,omitempty"`

	// ErrorCode is the fatal engine code when the session aborted.
	ErrorCode engine.CompileErrorCode `json:"error_code,omitempty"`

	// Errors contains expectation failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
