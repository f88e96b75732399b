package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ashc/internal/engine"
	"github.com/roach88/ashc/internal/stopping"
	"github.com/roach88/ashc/internal/testutil"
	"github.com/roach88/ashc/internal/verify"
)

// DefaultToolTimeout bounds scripted tool calls when a scenario sets none.
const DefaultToolTimeout = 100 * time.Millisecond

// DefaultTolerance is the score tolerance when a scenario sets none.
const DefaultTolerance = 0.001

// Scenario defines one deterministic compile session.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the session id,
	// before any suffix from WithSessionSuffix.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Spec is the spec text. Defaults to the description.
	Spec string `yaml:"spec,omitempty"`

	Stopping              stopping.Config `yaml:"stopping"`
	VerificationThreshold float64         `yaml:"verification_threshold,omitempty"`
	Parallelism           int             `yaml:"parallelism,omitempty"`

	// ToolTimeout is a Go duration string; defaults to the harness's
	// fallback, DefaultToolTimeout unless WithToolTimeout sets one.
	ToolTimeout    string                `yaml:"tool_timeout,omitempty"`
	AdvisoryPolicy verify.AdvisoryPolicy `yaml:"advisory_policy,omitempty"`

	Prior *PriorSpec `yaml:"prior,omitempty"`

	// Outcomes script sample i as Outcomes[i % len(Outcomes)].
	Outcomes []testutil.Outcome `yaml:"outcomes"`

	Nudges []string      `yaml:"nudges,omitempty"`
	Claim  *engine.Claim `yaml:"claim,omitempty"`

	Expect Expectation `yaml:"expect"`
}

// PriorSpec is an informed starting prior.
type PriorSpec struct {
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`
}

// Expectation lists checks on the session output. Nil fields are skipped.
type Expectation struct {
	Samples    *int            `yaml:"samples,omitempty"`
	Successes  *int            `yaml:"successes,omitempty"`
	Failures   *int            `yaml:"failures,omitempty"`
	Verified   *bool           `yaml:"verified,omitempty"`
	StopReason stopping.Reason `yaml:"stop_reason,omitempty"`
	Score      *float64        `yaml:"score,omitempty"`
	Tolerance  float64         `yaml:"tolerance,omitempty"`

	// Executable is the expected ref of the executable candidate; "none"
	// expects no passing candidate.
	Executable string `yaml:"executable,omitempty"`

	// Error is an expected fatal engine error code.
	Error engine.CompileErrorCode `yaml:"error,omitempty"`
}

// toolTimeout returns the parsed tool timeout.
func (s *Scenario) toolTimeout() (time.Duration, error) {
	return s.toolTimeoutOr(DefaultToolTimeout)
}

// toolTimeoutOr returns the parsed tool timeout, or fallback when the
// scenario sets none.
func (s *Scenario) toolTimeoutOr(fallback time.Duration) (time.Duration, error) {
	if s.ToolTimeout == "" {
		return fallback, nil
	}
	return time.ParseDuration(s.ToolTimeout)
}

// specText returns the spec text compiled by the session.
func (s *Scenario) specText() string {
	if s.Spec != "" {
		return s.Spec
	}
	return s.Description
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "outcome:" vs "outcomes:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every .yaml and .yml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scenarios := make([]*Scenario, 0, len(names))
	seen := make(map[string]string, len(names))
	for _, name := range names {
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate scenario name %q (also in %s)", name, s.Name, prev)
		}
		seen[s.Name] = name
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	cfg, err := s.Stopping.Validated()
	if err != nil {
		return fmt.Errorf("stopping: %w", err)
	}
	s.Stopping = cfg

	if s.VerificationThreshold < 0 || s.VerificationThreshold > 1 {
		return fmt.Errorf("verification_threshold must be in [0,1]")
	}
	if s.Parallelism < 0 {
		return fmt.Errorf("parallelism must be non-negative")
	}

	d, err := s.toolTimeout()
	if err != nil || d <= 0 {
		return fmt.Errorf("tool_timeout %q must be a positive duration", s.ToolTimeout)
	}

	if !s.AdvisoryPolicy.Valid() {
		return fmt.Errorf("advisory_policy %q must be ignore or require", s.AdvisoryPolicy)
	}

	if len(s.Outcomes) == 0 {
		return fmt.Errorf("outcomes list is required and must be non-empty")
	}
	for i, o := range s.Outcomes {
		if !o.Valid() {
			return fmt.Errorf("outcomes[%d]: unknown outcome %q", i, o)
		}
	}

	if s.Expect.Tolerance < 0 {
		return fmt.Errorf("expect.tolerance must be non-negative")
	}

	return nil
}
