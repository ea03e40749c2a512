package shared

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	t.Run("matches by code", func(t *testing.T) {
		err := NewNotFoundError("Campaign")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NotErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("matches through wrapping", func(t *testing.T) {
		err := fmt.Errorf("load product: %w", ErrTransientIO)
		assert.ErrorIs(t, err, ErrTransientIO)
	})

	t.Run("validation errors share a code", func(t *testing.T) {
		assert.ErrorIs(t, NewValidationError("bad percent"), ErrInvalidInput)
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrConcurrencyConflict))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", ErrTransientIO)))
	assert.False(t, IsRetryable(ErrNotFound))
	assert.False(t, IsRetryable(fmt.Errorf("plain")))
}
