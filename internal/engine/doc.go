// Package engine records tracked calculations in the provenance graph.
//
// The engine owns the logical clock and is the only writer of the store.
// It offers two things to callers:
//
//   - Store persists a single unstored data node.
//   - CalcFunction wraps a Go function so that each call records a process
//     node, an input_calc link from every input and a create link to the
//     returned node, all in one transaction.
//
// A failing function still leaves a trace: its inputs and an excepted
// process node are written, and the function's error is returned as is.
//
// Every stored node gets a seq from Clock.Next(). Ordering never depends on
// wall time.
package engine
