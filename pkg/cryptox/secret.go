package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// Secret size constants (in bytes).
const (
	// SecretSize256 provides 256 bits of entropy, matching the HS256 key size.
	SecretSize256 = 32
)

// GenerateSecret returns size bytes from the system CSPRNG.
func GenerateSecret(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secret size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate random secret: %w", err)
	}
	return buf, nil
}

// Fingerprint returns a short, deterministic name for a secret. The label
// separates fingerprints taken for different purposes so one can never be
// matched against another. The result is 12 hex characters.
func Fingerprint(label string, secret []byte) string {
	h := sha256.New()
	h.Write([]byte(label))
	h.Write([]byte{0})
	h.Write(secret)
	return hex.EncodeToString(h.Sum(nil)[:6])
}

// Equal compares two credentials in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
