// Package repositories implements SQLite persistence for classification runs.
//
// [RunRepository] stores each run with its summary, the full result document and one row per batch log.
// Runs support soft deletes via deleted_at timestamps and deleted records are excluded from queries by default.
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
