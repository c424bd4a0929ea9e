package atoms

import "errors"

var (
	// ErrIndexOutOfRange is returned when an atom index does not exist.
	ErrIndexOutOfRange = errors.New("atom index out of range")

	// ErrLengthMismatch is returned when a per-atom array has the wrong length.
	ErrLengthMismatch = errors.New("array length does not match number of atoms")

	// ErrSingularCell is returned when an operation needs an invertible cell.
	ErrSingularCell = errors.New("cell is singular")

	// ErrZeroVector is returned when a direction vector has zero length.
	ErrZeroVector = errors.New("zero-length vector")

	// ErrUnknownElement is returned for chemical symbols or numbers outside the element table.
	ErrUnknownElement = errors.New("unknown element")

	// ErrInvalidArgument covers any other malformed operation argument.
	ErrInvalidArgument = errors.New("invalid argument")
)
