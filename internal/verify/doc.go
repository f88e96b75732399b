// Package verify is the boundary to external verification tools.
//
// A Verifier runs every configured tool against a candidate through a
// caller-supplied ToolAdapter and folds the per-tool results into one
// Verdict. Three outcomes are kept apart:
//
//   - a tool that ran and failed: a failed ToolResult (soft)
//   - a tool that exceeded its timeout: a failed ToolResult with TimedOut set (soft)
//   - a tool that could not be run at all: *ToolUnavailableError (fatal)
//
// Soft outcomes become failed runs and feed the evidence. Fatal outcomes
// abort the compile session.
package verify
