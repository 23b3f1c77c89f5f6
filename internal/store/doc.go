// Package store provides SQLite-backed storage for experiment sessions.
//
// Two tables are kept:
//   - sessions: one row per run (participant, config hash, seed, status)
//   - trial_results: one row per executed trial, keyed by a content hash
//
// Writes are idempotent. A trial row's id is ir.RowID(session, row), and
// UNIQUE(session_id, idx) rejects a second, different row at the same
// index. Re-delivering a block's rows after a retry is a no-op.
//
// Reads are deterministic: rows come back ORDER BY idx ASC, sessions
// ORDER BY id ASC (UUIDv7 ids sort in creation order). Response times are
// stored as integer nanoseconds so a stored session re-exports to a CSV
// byte-identical to the one written by the run.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait up to 5s for locks
//   - foreign_keys=ON: trial rows must reference a stored session
package store
