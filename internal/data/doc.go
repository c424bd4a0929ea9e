// Package data holds the persisted containers of the provenance graph.
//
// Every container embeds a Node: a UUIDv7 assigned at construction, a node
// type, and an attribute object made of ir values. A node is unstored until
// the engine writes it, after which it carries a primary key and a logical
// sequence number and its attributes must no longer change.
//
// Containers:
//   - Dict, List: mappings and sequences of attribute values
//   - Float, Int, Str: scalars under the attribute "value"
//   - Array: named numeric arrays (NDArray)
//   - Structure: an atomic structure stored as cell, pbc, kinds and sites
//   - CalcFunction: the process node written for each tracked call
package data
