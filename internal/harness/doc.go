// Package harness runs scenario tests against tracked structures.
//
// A scenario loads a structure, applies a sequence of operations through a
// tracker backed by a fresh in-memory store, and evaluates expr-lang
// assertions over the final trackers, the recorded provenance and the step
// trace. The trace can be compared against a golden file.
//
// # Scenario Format
//
//	name: translate_then_repeat
//	description: "What this scenario validates"
//	structure_file: h2.yaml          # or an inline "structure:" document
//	untracked: false
//	steps:
//	  - op: translate
//	    args: [[1, 0, 0]]
//	  - op: repeat
//	    args: [[2, 1, 1]]
//	    as: supercell
//	  - op: pop
//	    args: [9]
//	    expect_error: "out of range"
//	assertions:
//	  - name: supercell size
//	    expr: trackers.supercell.natoms == 4
//	  - expr: distance("main", 0, 1) < 0.75
//
// Steps apply to the tracker named by "on" (default "main"). An
// out-of-place step stores its result under "as". A mapping argument with
// only start, stop and step keys is passed as a tracker.Slice.
//
// # Assertion Environment
//
//	trackers   map of tracker name to formula, natoms, symbols, positions,
//	           cell, pbc, tracking and stored
//	trace      list of step events (step, op, kind, on, result, state,
//	           inputs, formula, natoms, error)
//	nodes      number of stored nodes
//	links      number of stored links
//	processes  number of stored calcfunction nodes
package harness
