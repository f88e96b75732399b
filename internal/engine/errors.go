package engine

import (
	"errors"
	"fmt"
)

// CompileError is a fatal abort of a compile session.
//
// A session either returns a complete Output (verified or not) or a
// CompileError; there is no partial result. Fatal errors are never retried.
type CompileError struct {
	// Code identifies the error category.
	Code CompileErrorCode

	// Message is a human-readable description.
	Message string

	// SpecID identifies the spec being compiled, when known.
	SpecID string

	// SessionID identifies the session, when one was started.
	SessionID string

	// Err is the underlying cause.
	Err error
}

// CompileErrorCode categorizes compile errors.
type CompileErrorCode string

const (
	// ErrCodeToolUnavailable indicates a verification tool could not be run.
	ErrCodeToolUnavailable CompileErrorCode = "TOOL_UNAVAILABLE"

	// ErrCodeInvalidConfig indicates the spec, collaborators, or config were
	// rejected before sampling.
	ErrCodeInvalidConfig CompileErrorCode = "INVALID_CONFIG"

	// ErrCodeCanceled indicates the caller's context ended before a stop
	// decision.
	ErrCodeCanceled CompileErrorCode = "CANCELED"

	// ErrCodeSampleFailed indicates a verifier or rate limiter failed in a
	// way that is neither a missing tool nor a cancellation.
	ErrCodeSampleFailed CompileErrorCode = "SAMPLE_FAILED"
)

// Error implements the error interface.
func (e *CompileError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.SessionID != "" {
		return fmt.Sprintf("%s: %s (session=%s)", e.Code, msg, e.SessionID)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// IsToolUnavailable reports whether err is a tool-unavailable abort.
func IsToolUnavailable(err error) bool {
	return hasCode(err, ErrCodeToolUnavailable)
}

// IsInvalidConfig reports whether err is a configuration rejection.
func IsInvalidConfig(err error) bool {
	return hasCode(err, ErrCodeInvalidConfig)
}

// IsCanceled reports whether err is a caller cancellation.
func IsCanceled(err error) bool {
	return hasCode(err, ErrCodeCanceled)
}

// IsSampleFailed reports whether err is an unclassified sample failure.
func IsSampleFailed(err error) bool {
	return hasCode(err, ErrCodeSampleFailed)
}

func hasCode(err error, code CompileErrorCode) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

func invalidConfig(specID, message string, err error) *CompileError {
	return &CompileError{
		Code:    ErrCodeInvalidConfig,
		Message: message,
		SpecID:  specID,
		Err:     err,
	}
}
