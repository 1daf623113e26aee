package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("Secret123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=2$"))
	assert.NotContains(t, hash, "Secret123")

	other, err := HashPassword("Secret123")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salt must differ between hashes")
}

func TestVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("Secret123")
	require.NoError(t, err)

	ok, err := VerifyPassword("Secret123", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("secret123", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPassword_InvalidHash(t *testing.T) {
	t.Parallel()

	good, err := HashPassword("Secret123")
	require.NoError(t, err)
	parts := strings.Split(good, "$")
	salt, key := parts[4], parts[5]
	withParams := func(params string) string {
		return "$argon2id$v=19$" + params + "$" + salt + "$" + key
	}

	tests := []struct {
		name string
		hash string
	}{
		{name: "empty", hash: ""},
		{name: "plaintext", hash: "plaintext"},
		{name: "other algorithm", hash: "$bcrypt$x$y$z$w"},
		{name: "unparsable params", hash: "$argon2id$v=19$bogus$c2FsdA$aGFzaA"},
		{name: "other version", hash: "$argon2id$v=16$m=65536,t=3,p=2$" + salt + "$" + key},
		{name: "zero threads", hash: withParams("m=65536,t=3,p=0")},
		{name: "too many threads", hash: withParams("m=65536,t=3,p=64")},
		{name: "threads overflow", hash: withParams("m=65536,t=3,p=300")},
		{name: "zero iterations", hash: withParams("m=65536,t=0,p=2")},
		{name: "too many iterations", hash: withParams("m=65536,t=1000000,p=2")},
		{name: "memory below threads", hash: withParams("m=8,t=3,p=2")},
		{name: "huge memory", hash: withParams("m=4294967295,t=3,p=2")},
		{name: "short salt", hash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$" + key},
		{name: "bad salt encoding", hash: "$argon2id$v=19$m=65536,t=3,p=2$!!!$" + key},
		{name: "short key", hash: "$argon2id$v=19$m=65536,t=3,p=2$" + salt + "$aGFzaA"},
		{name: "huge key", hash: "$argon2id$v=19$m=65536,t=3,p=2$" + salt + "$" + strings.Repeat("QUFB", 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ok, err := VerifyPassword("Secret123", tt.hash)
			assert.False(t, ok)
			assert.ErrorIs(t, err, ErrInvalidHash)
		})
	}

	ok, err := VerifyPassword("Secret123", withParams("m=65536,t=3,p=2"))
	require.NoError(t, err)
	assert.True(t, ok, "bounds admit the parameters HashPassword writes")
}
