// Package store provides SQLite-backed durable storage for the provenance graph.
//
// The store holds two append-only tables:
//   - nodes: data and process nodes, attributes stored as canonical JSON
//   - links: directed edges (input_calc, create) between nodes
//
// # Patterns
//
// Idempotent writes
//   - nodes are unique by uuid; links by (input, output, type, label)
//   - inserts use ON CONFLICT DO NOTHING, so rewriting a node is a no-op
//
// Logical time
//   - every node carries seq from the engine's logical clock
//   - all listing queries use ORDER BY seq ASC, uuid COLLATE BINARY ASC
//
// Atomic calculations
//   - WriteCalculation writes inputs, process, output and links in one
//     transaction, so a crash never leaves a half-recorded call
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Content hashes are computed by internal/ir using canonical JSON and
// SHA-256 with domain separation.
package store
