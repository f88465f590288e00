package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := &BcryptHasher{Cost: bcrypt.MinCost}

	hash, err := h.Hash("Secret1!")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret1!", hash)

	ok, err := h.Matches("Secret1!", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Matches("secret1!", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Matches("Secret1!", "not-a-bcrypt-hash")
	require.Error(t, err)
}
