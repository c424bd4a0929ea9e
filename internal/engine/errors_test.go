package engine

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeError_Error(t *testing.T) {
	err := &RuntimeError{
		Code:     ErrCodeStoreFailure,
		Message:  "write node",
		Function: "translate",
		NodeUUID: "n1",
		Err:      errors.New("disk full"),
	}
	assert.Equal(t, "STORE_FAILURE: write node (function=translate) (node=n1): disk full", err.Error())

	bare := &RuntimeError{Code: ErrCodeInvalidOutput, Message: "no node"}
	assert.Equal(t, "INVALID_OUTPUT: no node", bare.Error())
}

func TestRuntimeError_Unwrap(t *testing.T) {
	err := fmt.Errorf("load: %w", &RuntimeError{Code: ErrCodeNodeNotFound, Err: sql.ErrNoRows})

	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.True(t, IsNotFound(err))
	assert.False(t, HasCode(err, ErrCodeStoreFailure))
	assert.False(t, IsNotFound(errors.New("plain")))
}
