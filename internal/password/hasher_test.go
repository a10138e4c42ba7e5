package password

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasherWithCost(bcrypt.MinCost)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotContains(t, hash, "correct horse", "hash must not embed the password")

	ok, err := h.Verify(ctx, "correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasher_VerifyMismatch(t *testing.T) {
	h := NewHasherWithCost(bcrypt.MinCost)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "secret-one")
	require.NoError(t, err)

	ok, err := h.Verify(ctx, "secret-two", hash)
	require.NoError(t, err, "a mismatch is a false result, not an error")
	assert.False(t, ok)
}

func TestHasher_VerifyMalformedHash(t *testing.T) {
	h := NewHasherWithCost(bcrypt.MinCost)

	ok, err := h.Verify(context.Background(), "whatever", "not-a-bcrypt-hash")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestHasher_CanceledContext(t *testing.T) {
	h := NewHasherWithCost(bcrypt.MinCost)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Hash(ctx, "pw")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHasher_HashesAreSalted(t *testing.T) {
	h := NewHasherWithCost(bcrypt.MinCost)
	ctx := context.Background()

	h1, err := h.Hash(ctx, "same-password")
	require.NoError(t, err)
	h2, err := h.Hash(ctx, "same-password")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}
