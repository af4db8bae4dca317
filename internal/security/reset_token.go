package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// Reset tokens are 20 random bytes (160 bits) rendered as hex. The raw token
// travels only in the reset email; the database sees only DigestResetToken.
const resetTokenBytes = 20

func NewResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)

	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// DigestResetToken is a plain sha256, not bcrypt: the token is high-entropy,
// single-use and short-lived, so a fast hash is the right tool here. Password
// storage stays on bcrypt.
func DigestResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
