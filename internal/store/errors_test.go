package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("some error"), false},
		{"ErrNotFound", ErrNotFound, true},
		{"ErrRecordNotFound", ErrRecordNotFound, true},
		{"wrapped ErrRecordNotFound", fmt.Errorf("find by id 7: %w", ErrRecordNotFound), true},
		{"store error wrapping not found", NewStoreError("generation_record", "find", "missing", ErrNotFound), true},
		{"ErrDuplicate", ErrDuplicate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNotFoundError(tt.err))
		})
	}
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := NewStoreError("generation_record", "save", "could not upsert", cause)

	assert.Equal(t, "save operation on generation_record failed: could not upsert: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := NewStoreError("generation_record", "delete_expired", "nothing to do", nil)
	assert.Equal(t, "delete_expired operation on generation_record failed: nothing to do", bare.Error())
	assert.Nil(t, errors.Unwrap(bare))
}
