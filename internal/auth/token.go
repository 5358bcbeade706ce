package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TokenBytes is the amount of randomness in a session or remember
// token. 40 bytes hex-encode to an 80-character string; collision
// handling relies on that entropy alone.
const TokenBytes = 40

// GenerateToken returns a high-entropy random token, hex-encoded
func GenerateToken(length int) (string, error) {
	if length <= 0 {
		length = TokenBytes
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
