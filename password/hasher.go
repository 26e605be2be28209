package password

import (
	"errors"
	"fmt"
)

// Algorithm names a supported password hashing scheme.
type Algorithm string

const (
	// AlgorithmArgon2id selects Argon2id with PHC-encoded digests.
	AlgorithmArgon2id Algorithm = "argon2id"
	// AlgorithmBcrypt selects bcrypt.
	AlgorithmBcrypt Algorithm = "bcrypt"

	// DefaultMaxPasswordBytes bounds the plaintext accepted by Hash and Verify.
	DefaultMaxPasswordBytes = 1024
)

var (
	// ErrEmptyPassword is returned by Hash for a zero-length plaintext.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrPasswordTooLong is returned by Hash when the plaintext exceeds MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
	// ErrMalformedDigest is returned when a stored digest cannot be parsed.
	ErrMalformedDigest = errors.New("malformed password digest")
)

// Hasher is a one-way salted password transform.
//
// Verify never returns an error: any malformed digest or oversized input
// fails closed.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password string, digest string) bool
	NeedsUpgrade(digest string) (bool, error)
	// MaxPasswordBytes is the longest plaintext Hash accepts.
	MaxPasswordBytes() int
}

// Config selects and tunes the hashing algorithm. The Argon2 fields are
// ignored for bcrypt and BcryptCost is ignored for Argon2id.
type Config struct {
	Algorithm        Algorithm
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	BcryptCost       int
	MaxPasswordBytes int
}

// New builds the Hasher named by cfg.Algorithm. An empty algorithm selects Argon2id.
func New(cfg Config) (Hasher, error) {
	switch cfg.Algorithm {
	case "", AlgorithmArgon2id:
		return NewArgon2(cfg)
	case AlgorithmBcrypt:
		return NewBcrypt(cfg)
	default:
		return nil, fmt.Errorf("unsupported password algorithm %q", cfg.Algorithm)
	}
}
