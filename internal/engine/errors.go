package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected by the engine itself, as opposed
// to an error returned by a wrapped function.
//
// Runtime errors include:
//   - Invalid input: an input is nil, unlabelled or a process node
//   - Invalid output: the function returned nothing or an already stored node
//   - Node not found: a UUID is not in the store
//   - Store failure: the provenance write or read failed
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Function is the calcfunction involved, if any.
	Function string

	// NodeUUID identifies the affected node, if any.
	NodeUUID string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidInput indicates a calcfunction input cannot be linked.
	ErrCodeInvalidInput RuntimeErrorCode = "INVALID_INPUT"

	// ErrCodeInvalidOutput indicates a calcfunction returned an unusable result.
	ErrCodeInvalidOutput RuntimeErrorCode = "INVALID_OUTPUT"

	// ErrCodeNodeNotFound indicates a UUID that is not stored.
	ErrCodeNodeNotFound RuntimeErrorCode = "NODE_NOT_FOUND"

	// ErrCodeStoreFailure indicates the store rejected a read or write.
	ErrCodeStoreFailure RuntimeErrorCode = "STORE_FAILURE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Function != "" {
		msg += fmt.Sprintf(" (function=%s)", e.Function)
	}
	if e.NodeUUID != "" {
		msg += fmt.Sprintf(" (node=%s)", e.NodeUUID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// HasCode reports whether err is a RuntimeError with the given code.
// Uses errors.As to handle wrapped errors.
func HasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsNotFound returns true if err reports a missing node.
func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeNodeNotFound)
}

func newInputError(function, key, message string) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeInvalidInput,
		Message:  fmt.Sprintf("input %q: %s", key, message),
		Function: function,
	}
}

func newStoreError(message, function, nodeUUID string, err error) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeStoreFailure,
		Message:  message,
		Function: function,
		NodeUUID: nodeUUID,
		Err:      err,
	}
}
