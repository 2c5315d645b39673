package auth

import (
	"strings"
	"testing"

	pkgerrors "github.com/honeynil/AccountService/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	passwords := []string{"ExamplePass123!", "12345678", "пароль-с-юникодом", strings.Repeat("x", 72)}
	for _, p := range passwords {
		hash, err := hasher.Hash(p)
		require.NoError(t, err)
		assert.NotEqual(t, p, hash)
		assert.True(t, strings.HasPrefix(hash, "$2a$04$"), "hash should embed algorithm and cost: %s", hash)
		assert.True(t, hasher.Verify(p, hash))
	}
}

func TestBcryptHasher_WrongPassword(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("correct horse battery")
	require.NoError(t, err)

	assert.False(t, hasher.Verify("correct horse battery!", hash))
	assert.False(t, hasher.Verify("Correct horse battery", hash))
	assert.False(t, hasher.Verify("", hash))
}

func TestBcryptHasher_SaltedHashesDiffer(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	first, err := hasher.Hash("same-password")
	require.NoError(t, err)
	second, err := hasher.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Verify("same-password", first))
	assert.True(t, hasher.Verify("same-password", second))
}

func TestBcryptHasher_MalformedHashFailsClosed(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	for _, hash := range []string{"", "plaintext", "$2a$", "$2a$04$tooshort", "$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA"} {
		assert.NotPanics(t, func() {
			assert.False(t, hasher.Verify("password", hash))
		})
	}
}

func TestBcryptHasher_HashFailure(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	t.Run("empty password", func(t *testing.T) {
		hash, err := hasher.Hash("")
		assert.ErrorIs(t, err, pkgerrors.ErrHashFailure)
		assert.Empty(t, hash)
	})

	t.Run("longer than bcrypt input limit", func(t *testing.T) {
		hash, err := hasher.Hash(strings.Repeat("x", 73))
		assert.ErrorIs(t, err, pkgerrors.ErrHashFailure)
		assert.Empty(t, hash)
	})
}

func TestNewBcryptHasher_CostOutOfRange(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, 12, NewBcryptHasher(12).cost)
}
