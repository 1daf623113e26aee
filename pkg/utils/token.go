package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// ResetTokenBytes is the amount of entropy in a password reset token.
const ResetTokenBytes = 20

// CreateResetToken draws ResetTokenBytes from r and returns them hex encoded
// (40 lowercase characters). A nil r reads from crypto/rand.
func CreateResetToken(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, ResetTokenBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
