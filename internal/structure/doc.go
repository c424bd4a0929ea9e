// Package structure reads and writes structure documents: YAML, JSON or CUE
// files holding the symbols, positions, cell, periodicity and masses of a
// structure.
//
// Every document is checked twice: against the embedded CUE #Structure
// definition for shape, then with struct validation for the relations the
// schema cannot express, such as one position per symbol.
package structure
