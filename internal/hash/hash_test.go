package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func assertRoundTrip(t *testing.T, h Hasher) {
	t.Helper()

	hashed, err := h.Hash("secret123")
	require.NoError(t, err)
	assert.NotContains(t, hashed, "secret123")

	ok, err := h.Check("secret123", hashed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Check("wrong password", hashed)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_RoundTrip(t *testing.T) {
	assertRoundTrip(t, BcryptHasher{Cost: bcrypt.MinCost})
}

func TestArgon2IDHasher_RoundTrip(t *testing.T) {
	assertRoundTrip(t, Argon2IDHasher{})
}

func TestHash_SaltedOutputDiffers(t *testing.T) {
	m, err := NewManager(Bcrypt, bcrypt.MinCost)
	require.NoError(t, err)

	a, err := m.Hash("secret123")
	require.NoError(t, err)
	b, err := m.Hash("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestManager_ChecksAnyKnownMethod(t *testing.T) {
	m, err := NewManager(Bcrypt, bcrypt.MinCost)
	require.NoError(t, err)

	argon, err := Argon2IDHasher{}.Hash("secret123")
	require.NoError(t, err)

	ok, err := m.Check("secret123", argon)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, m.NeedsRehash(argon))
}

func TestManager_MalformedHash(t *testing.T) {
	m, err := NewManager(Bcrypt, bcrypt.MinCost)
	require.NoError(t, err)

	_, err = m.Check("secret123", "plaintext")
	require.ErrorIs(t, err, ErrUnknownHash)

	_, err = m.Check("secret123", "$2a$10$short")
	require.Error(t, err)
}

func TestManager_NeedsRehashOnLowCost(t *testing.T) {
	low, err := BcryptHasher{Cost: bcrypt.MinCost}.Hash("secret123")
	require.NoError(t, err)

	m, err := NewManager(Bcrypt, bcrypt.MinCost+1)
	require.NoError(t, err)
	assert.True(t, m.NeedsRehash(low))

	same, err := NewManager(Bcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	assert.False(t, same.NeedsRehash(low))
}

func TestNewManager_UnknownMethod(t *testing.T) {
	_, err := NewManager("md5", 0)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "md5"))
}

func TestManager_VerifyPassword(t *testing.T) {
	for _, method := range []Method{Bcrypt, Argon2ID} {
		m, err := NewManager(method, bcrypt.MinCost)
		require.NoError(t, err)

		hashed, err := m.Hash("secret")
		require.NoError(t, err)

		ok, err := m.Check("secret", hashed)
		require.NoError(t, err)
		assert.True(t, ok, string(method))

		ok, err = m.Check("wrong", hashed)
		require.NoError(t, err)
		assert.False(t, ok, string(method))
	}
}
