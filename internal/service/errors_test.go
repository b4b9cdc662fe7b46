package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorHelpers(t *testing.T) {
	val := NewValidationError("title", MsgRequiredFields)
	assert.True(t, IsValidationError(fmt.Errorf("wrapped: %w", val)))
	assert.Equal(t, "validation error (title): Title and content are required", val.Error())

	st := &StorageError{Op: "list", Err: errors.New("boom")}
	assert.True(t, IsStorageError(st))
	assert.False(t, IsValidationError(st))
	assert.Equal(t, "storage error during list: boom", st.Error())

	assert.True(t, IsNotFound(fmt.Errorf("get: %w", ErrPostNotFound)))
	assert.False(t, IsNotFound(ErrStaleSnapshot))
}
