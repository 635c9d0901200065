package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	t.Run("Known error is mapped through wrapping", func(t *testing.T) {
		// Given: a wrapped sentinel error
		err := fmt.Errorf("failed to apply move: %w", ErrNotYourTurn)

		// When: resolving its code
		code := Code(err)

		// Then: the sentinel code should be returned
		assert.Equal(t, "not_your_turn", code)
	})

	t.Run("Unknown error is internal", func(t *testing.T) {
		// When: resolving the code of an unrelated error
		code := Code(errors.New("boom"))

		// Then: it should be reported as internal
		assert.Equal(t, "internal", code)
	})
}

func TestMessage(t *testing.T) {
	t.Run("Wrapping context is stripped", func(t *testing.T) {
		// Given: a sentinel wrapped with context
		err := fmt.Errorf("game %s: %w", "abc", ErrGameFull)

		// When: building the client message
		msg := Message(err)

		// Then: only the sentinel text should be kept
		assert.Equal(t, "Game is full", msg)
	})

	t.Run("Unknown error hides details", func(t *testing.T) {
		// When: building the client message for an unknown error
		msg := Message(errors.New("redis: connection refused"))

		// Then: a generic text should be returned
		assert.Equal(t, "Internal error", msg)
	})
}
