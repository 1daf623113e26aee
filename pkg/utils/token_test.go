package utils

import (
	"bytes"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestCreateResetToken(t *testing.T) {
	t.Parallel()

	token, err := CreateResetToken(nil)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{40}$`), token)

	other, err := CreateResetToken(nil)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestCreateResetToken_Deterministic(t *testing.T) {
	t.Parallel()

	src := bytes.NewReader(bytes.Repeat([]byte{0xab}, ResetTokenBytes))
	token, err := CreateResetToken(src)
	require.NoError(t, err)
	assert.Equal(t, "abababababababababababababababababababab", token)
}

func TestCreateResetToken_SourceFails(t *testing.T) {
	t.Parallel()

	token, err := CreateResetToken(failingReader{})
	assert.Error(t, err)
	assert.Empty(t, token)

	_, err = CreateResetToken(bytes.NewReader([]byte{1, 2, 3}))
	assert.Error(t, err, "short read must fail")
}
