package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/ashc/internal/ir"
)

// marshalToolResults converts tool results to canonical JSON TEXT.
func marshalToolResults(results []ir.ToolResult) (string, error) {
	items := make([]any, len(results))
	for i, tr := range results {
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
		items[i] = m
	}
	data, err := ir.MarshalCanonical(items)
	if err != nil {
		return "", fmt.Errorf("marshal tool results: %w", err)
	}
	return string(data), nil
}

// unmarshalToolResults parses canonical JSON TEXT. An empty array decodes
// to nil so round-trips match runs built without tool results.
func unmarshalToolResults(data string) ([]ir.ToolResult, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var results []ir.ToolResult
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		return nil, fmt.Errorf("unmarshal tool results: %w", err)
	}
	return results, nil
}

func marshalFactors(factors []string) (string, error) {
	if factors == nil {
		factors = []string{}
	}
	data, err := ir.MarshalCanonical(factors)
	if err != nil {
		return "", fmt.Errorf("marshal factors: %w", err)
	}
	return string(data), nil
}

func unmarshalFactors(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var factors []string
	if err := json.Unmarshal([]byte(data), &factors); err != nil {
		return nil, fmt.Errorf("unmarshal factors: %w", err)
	}
	return factors, nil
}

// formatTime renders t as UTC RFC 3339 with nanoseconds.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
