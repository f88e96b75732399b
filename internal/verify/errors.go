package verify

import (
	"errors"
	"fmt"
)

// ErrInvalidOptions is wrapped by every NewVerifier construction error.
var ErrInvalidOptions = errors.New("invalid verifier options")

// ToolUnavailableError reports that a verification tool is missing or broken.
//
// It is distinct from a failed tool run: a tool that ran and rejected the
// candidate produces a ToolResult with Passed=false, never this error.
type ToolUnavailableError struct {
	// Tool is the configured tool name.
	Tool string

	// Err is the adapter's underlying error.
	Err error
}

// Error implements the error interface.
func (e *ToolUnavailableError) Error() string {
	return fmt.Sprintf("tool %q unavailable: %v", e.Tool, e.Err)
}

// Unwrap returns the adapter error.
func (e *ToolUnavailableError) Unwrap() error {
	return e.Err
}

// IsToolUnavailableError reports whether err wraps a *ToolUnavailableError.
func IsToolUnavailableError(err error) bool {
	var tue *ToolUnavailableError
	return errors.As(err, &tue)
}

func invalidOptions(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOptions, fmt.Sprintf(format, args...))
}
