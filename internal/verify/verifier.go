package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/ashc/internal/ir"
)

// ToolAdapter runs one verification tool against one candidate.
//
// A returned error means the tool could not be run (missing binary, crashed
// harness) and is treated as fatal. A tool that ran and rejected the
// candidate must return a ToolResult with Passed=false and a nil error.
// Adapters must honor ctx; its deadline is the per-call timeout.
type ToolAdapter interface {
	Run(ctx context.Context, candidate ir.Candidate, tool string) (ir.ToolResult, error)
}

// ToolAdapterFunc adapts a function to ToolAdapter.
type ToolAdapterFunc func(ctx context.Context, candidate ir.Candidate, tool string) (ir.ToolResult, error)

// Run calls f.
func (f ToolAdapterFunc) Run(ctx context.Context, candidate ir.Candidate, tool string) (ir.ToolResult, error) {
	return f(ctx, candidate, tool)
}

// ToolSpec names a tool and its classification.
type ToolSpec struct {
	Name  string       `json:"name" yaml:"name"`
	Class ir.ToolClass `json:"class" yaml:"class"`
}

// AdvisoryPolicy decides whether advisory tools gate the verdict.
type AdvisoryPolicy string

const (
	// AdvisoryIgnore records advisory results without gating on them.
	AdvisoryIgnore AdvisoryPolicy = "ignore"
	// AdvisoryRequire treats advisory tools like critical ones.
	AdvisoryRequire AdvisoryPolicy = "require"
)

// Valid reports whether p is a known policy. The empty policy is valid and
// means AdvisoryIgnore.
func (p AdvisoryPolicy) Valid() bool {
	return p == "" || p == AdvisoryIgnore || p == AdvisoryRequire
}

// Options configures a Verifier.
type Options struct {
	// Timeout bounds each tool call. Required.
	Timeout time.Duration

	// AdvisoryPolicy defaults to AdvisoryIgnore.
	AdvisoryPolicy AdvisoryPolicy
}

// Verdict is the folded result of every tool on one candidate.
type Verdict struct {
	Passed   bool
	TimedOut bool
	Results  []ir.ToolResult
}

// Verifier runs a fixed tool list through an adapter.
//
// Thread-safety: a Verifier holds no mutable state and is safe for
// concurrent use provided the adapter is.
type Verifier struct {
	adapter ToolAdapter
	tools   []ToolSpec
	opts    Options
}

// NewVerifier validates the tool list and options.
//
// At least one critical tool is required, tool names must be unique, and a
// positive timeout must be supplied.
func NewVerifier(adapter ToolAdapter, tools []ToolSpec, opts Options) (*Verifier, error) {
	if adapter == nil {
		return nil, invalidOptions("adapter is nil")
	}
	if opts.Timeout <= 0 {
		return nil, invalidOptions("timeout must be > 0, got %s", opts.Timeout)
	}
	if !opts.AdvisoryPolicy.Valid() {
		return nil, invalidOptions("unknown advisory policy %q", opts.AdvisoryPolicy)
	}
	if opts.AdvisoryPolicy == "" {
		opts.AdvisoryPolicy = AdvisoryIgnore
	}

	seen := make(map[string]bool, len(tools))
	critical := 0
	for _, t := range tools {
		if t.Name == "" {
			return nil, invalidOptions("tool name is empty")
		}
		if seen[t.Name] {
			return nil, invalidOptions("duplicate tool %q", t.Name)
		}
		if !t.Class.Valid() {
			return nil, invalidOptions("tool %q: unknown class %q", t.Name, t.Class)
		}
		seen[t.Name] = true
		if t.Class == ir.ToolCritical {
			critical++
		}
	}
	if critical == 0 {
		return nil, invalidOptions("at least one critical tool is required")
	}

	toolsCopy := make([]ToolSpec, len(tools))
	copy(toolsCopy, tools)

	return &Verifier{adapter: adapter, tools: toolsCopy, opts: opts}, nil
}

// Tools returns the configured tools in declaration order.
func (v *Verifier) Tools() []ToolSpec {
	out := make([]ToolSpec, len(v.tools))
	copy(out, v.tools)
	return out
}

// Options returns the verifier's options with defaults applied.
func (v *Verifier) Options() Options {
	return v.opts
}

// Verify runs every tool in declaration order and folds the results.
//
// Every tool runs even after a gating failure so the run records complete
// diagnostics. Cancellation of ctx returns ctx.Err(); a per-tool timeout
// yields a failed, TimedOut result instead.
func (v *Verifier) Verify(ctx context.Context, candidate ir.Candidate) (Verdict, error) {
	verdict := Verdict{
		Passed:  true,
		Results: make([]ir.ToolResult, 0, len(v.tools)),
	}

	for _, tool := range v.tools {
		res, err := v.runTool(ctx, candidate, tool)
		if err != nil {
			return Verdict{}, err
		}
		verdict.Results = append(verdict.Results, res)

		if !v.gates(tool.Class) {
			continue
		}
		if !res.Passed {
			verdict.Passed = false
		}
		if res.TimedOut {
			verdict.TimedOut = true
		}
	}
	return verdict, nil
}

func (v *Verifier) gates(class ir.ToolClass) bool {
	return class == ir.ToolCritical || v.opts.AdvisoryPolicy == AdvisoryRequire
}

func (v *Verifier) runTool(ctx context.Context, candidate ir.Candidate, tool ToolSpec) (ir.ToolResult, error) {
	toolCtx, cancel := context.WithTimeout(ctx, v.opts.Timeout)
	defer cancel()

	res, err := v.adapter.Run(toolCtx, candidate, tool.Name)

	// Parent cancellation wins over everything the adapter reported.
	if ctx.Err() != nil {
		return ir.ToolResult{}, ctx.Err()
	}
	if errors.Is(toolCtx.Err(), context.DeadlineExceeded) {
		return ir.ToolResult{
			ToolName:    tool.Name,
			Class:       tool.Class,
			Passed:      false,
			TimedOut:    true,
			Diagnostics: []string{fmt.Sprintf("timed out after %s", v.opts.Timeout)},
		}, nil
	}
	if err != nil {
		return ir.ToolResult{}, &ToolUnavailableError{Tool: tool.Name, Err: err}
	}

	res.ToolName = tool.Name
	res.Class = tool.Class
	return res, nil
}
