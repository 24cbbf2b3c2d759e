package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// ResetTokenBytes is the entropy of a raw password-reset token (256 bits).
const ResetTokenBytes = 32

// HashResetToken returns the hex SHA-256 digest stored in place of a raw reset token.
// A fast hash is sufficient because the raw token is high-entropy.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

