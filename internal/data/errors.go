package data

import "errors"

var (
	// ErrImmutable is returned when a stored node would be modified.
	ErrImmutable = errors.New("stored node is immutable")
	// ErrUnknownNodeType is returned for a record whose type has no container.
	ErrUnknownNodeType = errors.New("unknown node type")
	// ErrInvalidAttributes is returned when attributes cannot be decoded or stored.
	ErrInvalidAttributes = errors.New("invalid node attributes")
	// ErrShape is returned for an NDArray whose data does not fill its shape.
	ErrShape = errors.New("array data does not match shape")
)
