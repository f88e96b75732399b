package harness

import (
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ashc/internal/ir"
)

// EvidenceSnapshot captures a session's evidence for golden comparison.
// Timestamps are omitted; runs are identified by content id.
type EvidenceSnapshot struct {
	ScenarioName string
	Result       *Result
}

// toCanonicalMap converts the snapshot to a map for canonical JSON.
// ir.MarshalCanonical rejects floats, so they are rendered as fixed
// precision strings.
func (s *EvidenceSnapshot) toCanonicalMap() map[string]any {
	m := map[string]any{
		"scenario_name": s.ScenarioName,
	}
	if s.Result.ErrorCode != "" {
		m["error_code"] = string(s.Result.ErrorCode)
	}

	out := s.Result.Output
	if out == nil {
		return m
	}

	runs := make([]any, len(out.Evidence.Runs))
	for i, run := range out.Evidence.Runs {
		r := map[string]any{
			"id":             run.ID,
			"seq":            run.Seq,
			"variation_seed": run.VariationSeed,
			"outcome":        run.Outcome(),
		}
		if run.Nudge != "" {
			r["nudge"] = run.Nudge
		}
		if run.CandidateRef != "" {
			r["candidate_ref"] = run.CandidateRef
		}
		if run.TimedOut {
			r["timed_out"] = true
		}
		runs[i] = r
	}

	m["spec_id"] = out.Evidence.SpecID
	m["prior"] = map[string]any{
		"alpha": formatFloat(out.Evidence.Prior.Alpha),
		"beta":  formatFloat(out.Evidence.Prior.Beta),
	}
	m["runs"] = runs
	m["equivalence_score"] = formatFloat(out.EquivalenceScore)
	m["verified"] = out.Verified
	m["stop_reason"] = string(out.Decision.Reason)
	if out.Executable != nil {
		m["executable"] = out.Executable.Ref
	}
	return m
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}

// Snapshot renders a result as the canonical JSON stored in golden files.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := EvidenceSnapshot{ScenarioName: scenarioName, Result: result}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its evidence against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot be set up. Test failure (via
// goldie) occurs if the evidence doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's evidence against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
