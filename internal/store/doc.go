// Package store provides the SQLite-backed run journal.
//
// The journal is an append-only log with:
//   - Runs: one row per processed stream (header limits, dialect, versions)
//   - Commands: every applied command with its acknowledgement
//   - Dispatches: every courier report, including empty ones
//
// # Critical Patterns
//
// Idempotent writes
//   - Command and dispatch ids are content-addressed (see internal/ir/hash.go)
//   - Every INSERT uses ON CONFLICT DO NOTHING, so re-recording a run is a no-op
//
// Logical identity and time
//   - Ordering uses tick and created_seq, NEVER timestamps
//   - Enables deterministic replay regardless of wall time
//
// Deterministic query results
//   - All queries MUST include: ORDER BY tick ASC, id ASC COLLATE BINARY
//     (runs: created_seq ASC, id ASC COLLATE BINARY)
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
