// Package ir provides the record types shared by every ashc package: tool
// results, runs, and the evidence a compile session accumulates.
//
// ir depends only on bayes. Everything else imports ir.
//
// Key design constraints:
//   - Run and ToolResult are immutable once created; Evidence grows by Append,
//     which returns a new value
//   - Run order inside Evidence is completion order, stamped by Seq
//   - Identifiers are content-addressed: SHA-256 over RFC 8785 canonical JSON
//     with a versioned domain prefix
//   - Canonical JSON has no floats; scores are derived, never hashed
//   - All JSON tags use snake_case
package ir
