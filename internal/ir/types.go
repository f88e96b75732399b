package ir

import "time"

// ToolClass says whether a verification tool gates the verdict.
type ToolClass string

const (
	// ToolCritical tools must all pass for a run to pass.
	ToolCritical ToolClass = "critical"
	// ToolAdvisory tools are recorded; whether they gate is caller policy.
	ToolAdvisory ToolClass = "advisory"
)

// Valid reports whether c is a known class.
func (c ToolClass) Valid() bool {
	return c == ToolCritical || c == ToolAdvisory
}

// ToolResult is one verification tool's verdict on one candidate.
type ToolResult struct {
	ToolName    string    `json:"tool_name"`
	Class       ToolClass `json:"class"`
	Passed      bool      `json:"passed"`
	TimedOut    bool      `json:"timed_out,omitempty"`
	Diagnostics []string  `json:"diagnostics,omitempty"`
}

// Run is one recorded sample: a generated candidate and its verification
// outcome. A run whose generation failed has no tool results and
// GenerationError set.
//
// Runs are immutable once created; fields are exported for serialization only.
type Run struct {
	ID              string       `json:"id"`
	SessionID       string       `json:"session_id"`
	Seq             int64        `json:"seq"`
	VariationSeed   int64        `json:"variation_seed"`
	Nudge           string       `json:"nudge,omitempty"`
	CandidateRef    string       `json:"candidate_ref,omitempty"`
	ToolResults     []ToolResult `json:"tool_results,omitempty"`
	Passed          bool         `json:"passed"`
	GenerationError string       `json:"generation_error,omitempty"`
	TimedOut        bool         `json:"timed_out,omitempty"`
	Timestamp       time.Time    `json:"timestamp"`
}

// Failed reports the inverse of Passed.
func (r Run) Failed() bool {
	return !r.Passed
}

// Outcome names the run's result for logs and metrics.
func (r Run) Outcome() string {
	switch {
	case r.Passed:
		return "pass"
	case r.GenerationError != "":
		return "generation_failure"
	case r.TimedOut:
		return "timeout"
	default:
		return "fail"
	}
}

// ToolResult returns the named tool's result, if it ran.
func (r Run) ToolResult(name string) (ToolResult, bool) {
	for _, tr := range r.ToolResults {
		if tr.ToolName == name {
			return tr, true
		}
	}
	return ToolResult{}, false
}

// CanonicalMap renders the run for canonical JSON, omitting the wall-clock
// timestamp so snapshots are deterministic.
func (r Run) CanonicalMap() map[string]any {
	tools := make([]any, len(r.ToolResults))
	for i, tr := range r.ToolResults {
		m := map[string]any{
			"tool_name": tr.ToolName,
			"class":     string(tr.Class),
			"passed":    tr.Passed,
		}
		if tr.TimedOut {
			m["timed_out"] = true
		}
		if len(tr.Diagnostics) > 0 {
			m["diagnostics"] = tr.Diagnostics
		}
		tools[i] = m
	}

	m := map[string]any{
		"id":             r.ID,
		"seq":            r.Seq,
		"variation_seed": r.VariationSeed,
		"passed":         r.Passed,
		"tool_results":   tools,
	}
	if r.Nudge != "" {
		m["nudge"] = r.Nudge
	}
	if r.CandidateRef != "" {
		m["candidate_ref"] = r.CandidateRef
	}
	if r.GenerationError != "" {
		m["generation_error"] = r.GenerationError
	}
	if r.TimedOut {
		m["timed_out"] = true
	}
	return m
}

// Candidate is one generated implementation. Ref identifies it in runs and
// stores; Source is opaque to the compiler and handed to tool adapters as-is.
type Candidate struct {
	Ref    string `json:"ref"`
	Source string `json:"source,omitempty"`
}
