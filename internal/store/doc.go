// Package store archives verification runs in SQLite.
//
// Archiving is optional: verify only touches the store when asked for a
// database path. Each run gets a uuid, its summary counters, and the
// rendered report text of every cycle it found, so findings can be
// compared across trace collections without keeping the trace files.
//
// Database configuration follows the usual SQLite recipe:
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: cycles reference their run
//
// Writes are idempotent: re-inserting a cycle for a run is a no-op via
// ON CONFLICT DO NOTHING.
package store
