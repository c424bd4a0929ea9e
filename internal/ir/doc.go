// Package ir provides the persisted value and record types for the
// provenance graph.
//
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Node attributes are restricted to the sealed IRValue types
//   - Floats are allowed but must be finite; canonical JSON keeps a
//     trailing ".0" on integral floats so they never decode as ints
//   - All JSON tags use snake_case
//   - Logical clocks (seq) order records, never wall-clock timestamps
package ir
