// Package stopping decides when a compile session has seen enough samples.
//
// The controller is pure: ShouldStop reads a State and returns a Decision.
// Rules are checked in a fixed order:
//
//  1. n_diff: |successes - failures| >= NDiffMargin
//  2. max_samples: SamplesTaken >= MaxSamples
//  3. tier: the posterior puts at least ConfidenceThreshold of its mass on
//     one side of TierBoundary
//
// Rule 3 never fires before the first sample unless the session started from
// an informed (non-uniform) prior.
package stopping

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// DefaultTierBoundary splits "likely passes" from "likely fails".
const DefaultTierBoundary = 0.5

// Config holds the caller's stopping parameters. Construct with NewConfig;
// invalid values are rejected, never clamped.
type Config struct {
	NDiffMargin         int     `json:"n_diff_margin" yaml:"n_diff_margin" validate:"gt=0"`
	MaxSamples          int     `json:"max_samples" yaml:"max_samples" validate:"gt=0"`
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold" validate:"gte=0,lte=1"`
	TierBoundary        float64 `json:"tier_boundary,omitempty" yaml:"tier_boundary,omitempty" validate:"gt=0,lt=1"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewConfig validates and returns a Config. A zero TierBoundary means
// DefaultTierBoundary.
func NewConfig(nDiffMargin, maxSamples int, confidenceThreshold float64) (Config, error) {
	return Config{
		NDiffMargin:         nDiffMargin,
		MaxSamples:          maxSamples,
		ConfidenceThreshold: confidenceThreshold,
	}.Validated()
}

// Validated fills defaults and validates c. The returned error is an
// *InvalidConfigError naming the first offending field.
func (c Config) Validated() (Config, error) {
	if c.TierBoundary == 0 {
		c.TierBoundary = DefaultTierBoundary
	}
	if err := validate.Struct(c); err != nil {
		return Config{}, translate(err)
	}
	return c, nil
}

// InvalidConfigError reports a stopping parameter outside its domain.
type InvalidConfigError struct {
	Field  string
	Value  any
	Reason string
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid stopping config: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// IsInvalidConfigError reports whether err wraps an *InvalidConfigError.
func IsInvalidConfigError(err error) bool {
	var ice *InvalidConfigError
	return errors.As(err, &ice)
}

func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &InvalidConfigError{Field: "config", Reason: err.Error()}
	}
	fe := verrs[0]
	return &InvalidConfigError{
		Field:  fieldName(fe.StructField()),
		Value:  fe.Value(),
		Reason: reason(fe.Tag(), fe.Param()),
	}
}

func fieldName(structField string) string {
	switch structField {
	case "NDiffMargin":
		return "n_diff_margin"
	case "MaxSamples":
		return "max_samples"
	case "ConfidenceThreshold":
		return "confidence_threshold"
	case "TierBoundary":
		return "tier_boundary"
	}
	return structField
}

func reason(tag, param string) string {
	switch tag {
	case "gt":
		return "must be > " + param
	case "gte":
		return "must be >= " + param
	case "lt":
		return "must be < " + param
	case "lte":
		return "must be <= " + param
	}
	return "failed " + tag
}
