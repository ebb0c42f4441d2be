package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// tokenBytes is the entropy of raw session and reset tokens. 32 bytes hex-encode
// to the 64-character value carried in the session cookie and reset links.
const tokenBytes = 32

// GenerateToken returns a new opaque bearer token: 32 bytes of cryptographically
// secure randomness, hex-encoded. The raw value goes to the client; only its
// SHA-256 hash is ever persisted.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashToken returns a SHA-256 hash of the raw token string, hex-encoded.
// Used for storing and looking up tokens without storing the raw value.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// TokenHashEqual performs constant-time comparison of the provided token's hash
// with the stored hash. Returns true only if they match.
func TokenHashEqual(providedToken, storedHash string) bool {
	providedHash := HashToken(providedToken)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
