// Package engine implements the evidence-accumulation compiler.
//
// Compile repeatedly generates a candidate for a spec, verifies it, and
// folds the pass/fail outcome into a Beta posterior until the stopping
// controller says stop. The result is an Output carrying the evidence, the
// posterior-mean equivalence score, and the verified flag.
//
// ARCHITECTURE:
//
// Single-Writer Collector:
// Samples run concurrently in worker goroutines (up to Config.Parallelism).
// Each finished sample is enqueued on an unbounded completion queue. One
// collector goroutine dequeues completions in arrival order and is the only
// writer of the session's Evidence, stopping State, and Decision.
//
// Sample Flow:
// 1. Collector dispatches a Variation (seed, nudge) to an idle worker
// 2. Worker generates a candidate and verifies it
// 3. Worker enqueues the completion
// 4. Collector appends a Run (Seq from the session Clock), updates the
// posterior, and asks the controller whether to stop
// 5. If not stopped and the sample cap allows, the collector dispatches again
//
// Stop decisions are evaluated after every completion, so a fast-divergence
// stop can fire while other samples are still in flight. Those samples are
// cancelled through their context; any result that arrives anyway is
// refused by the closed queue and counted in Output.LateDiscarded.
//
// Failure Model:
// Generation failures and verification timeouts are failed runs. An
// unavailable verification tool aborts the session with a CompileError.
// Invalid configuration is rejected before a session starts.
package engine
