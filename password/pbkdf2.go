package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"github.com/MrEthical07/careauth/internal"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// AlgorithmPBKDF2SHA256 is the algorithm tag written into every derived record.
	AlgorithmPBKDF2SHA256 = "PBKDF2-SHA256"

	// DefaultIterations is the OWASP minimum for PBKDF2-HMAC-SHA256.
	DefaultIterations = 100000
	// DefaultSaltBytes is 256 bits of salt.
	DefaultSaltBytes = internal.SaltBytes
	// DefaultKeyBytes is 512 bits of derived key.
	DefaultKeyBytes = 64

	minIterations = DefaultIterations
	minSaltBytes  = 16
	minKeyBytes   = 32
)

var (
	// ErrUnsupportedAlgorithm is returned when a stored record names an algorithm this package does not derive.
	ErrUnsupportedAlgorithm = errors.New("unsupported password algorithm")
	// ErrMalformedRecord is returned when a stored record cannot be decoded.
	ErrMalformedRecord = errors.New("malformed password record")
)

// Config controls PBKDF2 derivation parameters.
type Config struct {
	Iterations int
	SaltBytes  int
	KeyBytes   int
}

// DefaultConfig returns the parameters used for newly hashed passwords.
func DefaultConfig() Config {
	return Config{
		Iterations: DefaultIterations,
		SaltBytes:  DefaultSaltBytes,
		KeyBytes:   DefaultKeyBytes,
	}
}

// PBKDF2 hashes and verifies passwords. It is safe for concurrent use.
type PBKDF2 struct {
	config Config
}

// NewPBKDF2 validates cfg and returns a hasher.
func NewPBKDF2(cfg Config) (*PBKDF2, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &PBKDF2{config: cfg}, nil
}

// Iterations reports the iteration count used for new hashes.
func (p *PBKDF2) Iterations() int {
	return p.config.Iterations
}

// GenerateSalt returns DefaultSaltBytes of crypto/rand entropy, hex encoded.
func GenerateSalt() (string, error) {
	return internal.NewSalt()
}

// Hash derives a record for password using a fresh random salt.
func (p *PBKDF2) Hash(password string) (Derived, error) {
	salt, err := internal.RandomHex(p.config.SaltBytes)
	if err != nil {
		return Derived{}, err
	}
	return p.HashWithSalt(password, salt)
}

// HashWithSalt derives a record for password using the given hex salt.
// The result is deterministic for a fixed password, salt and configuration.
func (p *PBKDF2) HashWithSalt(password, saltHex string) (Derived, error) {
	salt, err := hex.DecodeString(saltHex)
	if err != nil || len(salt) == 0 {
		return Derived{}, ErrMalformedRecord
	}

	key := pbkdf2.Key([]byte(password), salt, p.config.Iterations, p.config.KeyBytes, sha256.New)

	return Derived{
		Hash:       hex.EncodeToString(key),
		Salt:       saltHex,
		Iterations: p.config.Iterations,
		Algorithm:  AlgorithmPBKDF2SHA256,
	}, nil
}

// Verify recomputes the key with the stored salt and iteration count and
// compares in constant time.
func (p *PBKDF2) Verify(password string, stored Derived) (bool, error) {
	if stored.Algorithm != AlgorithmPBKDF2SHA256 {
		return false, ErrUnsupportedAlgorithm
	}
	salt, err := hex.DecodeString(stored.Salt)
	if err != nil || len(salt) == 0 {
		return false, ErrMalformedRecord
	}
	expected, err := hex.DecodeString(stored.Hash)
	if err != nil || len(expected) == 0 {
		return false, ErrMalformedRecord
	}
	if stored.Iterations <= 0 {
		return false, ErrMalformedRecord
	}

	computed := pbkdf2.Key([]byte(password), salt, stored.Iterations, len(expected), sha256.New)

	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// NeedsUpgrade reports whether stored should be re-derived on the next
// successful login: always for legacy digests, and for derived records made
// with fewer iterations than the current configuration.
func (p *PBKDF2) NeedsUpgrade(stored Stored) bool {
	switch stored.Kind() {
	case KindLegacy:
		return true
	case KindDerived:
		d, _ := stored.Derived()
		return d.Iterations < p.config.Iterations
	default:
		return false
	}
}

// LegacyDigest computes the deprecated hex(SHA-256(password + secret)) digest.
func LegacyDigest(password, secret string) string {
	sum := sha256.Sum256([]byte(password + secret))
	return hex.EncodeToString(sum[:])
}

// VerifyLegacy compares password against a legacy digest in constant time.
func VerifyLegacy(password, secret, digest string) bool {
	computed := LegacyDigest(password, secret)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}

func validateConfig(cfg Config) error {
	if cfg.Iterations < minIterations {
		return errors.New("password iterations must be >= 100000")
	}
	if cfg.SaltBytes < minSaltBytes {
		return errors.New("password salt length must be >= 16")
	}
	if cfg.KeyBytes < minKeyBytes {
		return errors.New("password key length must be >= 32")
	}
	return nil
}
