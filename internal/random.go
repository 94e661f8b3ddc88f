package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

const (
	// DefaultTokenBytes is the entropy used when a caller does not ask for a size.
	DefaultTokenBytes = 32
	// SaltBytes is the PBKDF2 salt size (256 bits).
	SaltBytes = 32
	// SecretBytes is the size of a generated signing secret.
	SecretBytes = 64
)

// RandomBytes reads n bytes from crypto/rand.
func RandomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, errors.New("random size must be > 0")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// RandomHex returns n random bytes, hex encoded (2n characters).
func RandomHex(n int) (string, error) {
	if n == 0 {
		n = DefaultTokenBytes
	}
	buf, err := RandomBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func NewSalt() (string, error) {
	return RandomHex(SaltBytes)
}

// HashIdentifier returns a short stable fingerprint of a value (client IP etc.)
// so logs can correlate requests without storing the raw value.
func HashIdentifier(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:8])
}
