package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// HashString returns a hex-encoded SHA-256 hash. Used for verification codes
// and API keys stored at rest; the raw value is never persisted.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// RandomToken returns n random bytes hex-encoded.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// NewVerificationCode returns the raw code sent to the user and the hash
// stored on the user row.
func NewVerificationCode() (raw string, hashed string, err error) {
	raw, err = RandomToken(32)
	if err != nil {
		return "", "", err
	}
	return raw, HashString(raw), nil
}
