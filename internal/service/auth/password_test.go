package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptVerifier(t *testing.T) {
	v := NewBcryptVerifier(4)

	t.Run("hash and compare round trip", func(t *testing.T) {
		hash, err := v.HashPassword("correct-horse-battery")
		require.NoError(t, err)
		require.NotEqual(t, "correct-horse-battery", hash)

		assert.NoError(t, v.Compare(hash, "correct-horse-battery"))
		assert.ErrorIs(t, v.Compare(hash, "wrong-password-here"), ErrPasswordMismatch)
	})

	t.Run("short password rejected", func(t *testing.T) {
		_, err := v.HashPassword("short")
		assert.Error(t, err)
	})
}
