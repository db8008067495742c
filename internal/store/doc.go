// Package store is a SQLite reference executor for tmerge plans.
//
// It keeps time-versioned rows of any number of logical target tables in a
// single timeline table, applies plans inside one transaction and records
// every applied plan with its per-row feedback:
//   - timeline: one row per (entity, period), payload as canonical JSON
//   - plan_runs: applied plans with their content hash
//   - row_feedback: per-source-row outcome of each applied plan
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Payloads and keys are stored as RFC 8785 canonical JSON so that equal
// values always produce equal text.
package store
