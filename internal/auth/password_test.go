package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.True(t, VerifyPassword("secret123", hash))
	assert.False(t, VerifyPassword("wrong-password", hash))
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	t.Parallel()

	// A broken stored hash is indistinguishable from a wrong password.
	assert.False(t, VerifyPassword("secret123", "not-a-bcrypt-hash"))
	assert.False(t, VerifyPassword("secret123", ""))
}
