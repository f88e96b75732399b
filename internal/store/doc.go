// Package store persists compile sessions, bet settlements, and causal
// edges in SQLite.
//
// The compiler core never depends on this package; the CLI and harness use
// it to keep evidence across processes.
//
// # Tables
//
//   - sessions: one row per compile session with its verdict
//   - runs: the session's runs in completion order (append-only)
//   - settlements: bet settlements, replayable into a fresh ledger
//   - causal_edges: the causal graph, upserted by key
//
// # Ordering
//
// Every multi-row read orders by a logical seq column, then id
// COLLATE BINARY. Wall-clock columns are informational only.
//
// Connections run in WAL mode with synchronous=NORMAL, a 5s busy timeout
// and foreign keys enforced. Schema upgrades are keyed on PRAGMA
// user_version.
//
// Tool results and factor lists are stored as RFC 8785 canonical JSON
// produced by internal/ir.
package store
