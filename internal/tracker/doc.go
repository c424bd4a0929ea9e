// Package tracker records structure edits in the provenance graph.
//
// A Tracker pairs a live *atoms.Atoms with the data.Structure node that
// describes it. Every operation in the dispatch table is exposed through
// Apply and through a typed method of the same name.
//
// Arguments are serialized into data nodes and linked as inputs of a
// calcfunction named after the operation: positional arguments as
// "arg_00", "arg_01", ..., keyword arguments by name, and the receiver's
// current node as "node".
//
// In-place operations (translate, rotate, ...) mutate the tracker's own
// structure inside the recorded call and return the same tracker with a new
// node. Out-of-place operations (repeat, index_access, replicate) work on a
// snapshot decoded from the current node and return a new tracker; the
// receiver is never touched. The new tracker records by default, whatever
// the receiver's setting.
//
// With tracking off the same steps run without the engine: nodes are
// still replaced but never stored or linked.
package tracker
