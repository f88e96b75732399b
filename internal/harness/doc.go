// Package harness runs compile scenarios against the real engine.
//
// A scenario scripts the outcome of every sample by seed, so a session is
// fully deterministic: the same scenario always yields the same runs, score
// and stop reason. The harness drives engine.Compiler with the scripted
// generator and tool adapter from testutil, then checks the scenario's
// expectations against the output.
//
// # Scenario Format
//
//	name: alternating_to_cap
//	description: "pass/fail alternation never reaches the margin"
//	stopping:
//	  n_diff_margin: 3
//	  max_samples: 20
//	  confidence_threshold: 0.9
//	outcomes: [pass, fail]
//	expect:
//	  samples: 20
//	  successes: 10
//	  failures: 10
//	  verified: false
//	  stop_reason: max_samples
//	  score: 0.5
//
// Outcomes cycle by seed: sample i gets outcomes[i % len(outcomes)].
// Valid outcomes are pass, fail, gen_error, timeout, advisory_fail and
// tool_unavailable. Each scenario verifies with a critical "tests" tool
// and an advisory "lint" tool.
//
// # Expectations
//
// Every expect field is optional; only the fields present are checked.
// score is compared within tolerance (default 0.001). error names an
// expected fatal engine code such as TOOL_UNAVAILABLE; when set, the
// session must abort with that code.
//
// # Deterministic Testing
//
// Sessions use a deterministic clock and a fixed session id equal to the
// scenario name, so evidence snapshots can be compared against golden
// files with RunWithGolden.
package harness
