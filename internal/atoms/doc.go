// Package atoms provides an in-memory atomic structure and its editing operations.
//
// An Atoms value holds atomic numbers, Cartesian positions (Å), a 3×3 cell whose
// rows are the lattice vectors, periodic boundary flags and optional explicit masses.
// Operations follow the conventions of common structure toolkits: angles are in
// degrees, negative atom indices count from the end, and rotations are
// right-handed about the given axis.
//
// Atoms is not safe for concurrent mutation.
package atoms
