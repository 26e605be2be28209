package goAccount

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/password"
)

// Config holds every tunable of the Engine.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable. Builder.WithConfig stores a deep copy.
type Config struct {
	JWT            JWTConfig
	Password       PasswordConfig
	Account        AccountConfig
	Security       SecurityConfig
	Audit          AuditConfig
	Metrics        MetricsConfig
	ValidationMode ValidationMode
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig carries the token signing material. A zero TokenTTL issues
// tokens without expiry; revocation is then the only way to end them.
type JWTConfig struct {
	TokenTTL      time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	// KeyID is stamped into the kid header. VerifyKeys maps kid to a public
	// key so that tokens signed by a retired key keep verifying after a
	// restart with a new signing key.
	KeyID      string
	VerifyKeys map[string][]byte
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the digest algorithm and its cost parameters.
type PasswordConfig struct {
	Algorithm      string // "argon2id" (default) or "bcrypt"
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	BcryptCost     int
	UpgradeOnLogin bool
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig holds field rules and lifecycle switches.
type AccountConfig struct {
	MinPasswordLength          int
	ForbiddenPasswordSubstring string
	// AtomicCascadeDelete uses the store's single-unit cascade when it offers one.
	AtomicCascadeDelete          bool
	RevokeTokensOnPasswordChange bool
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds the failed-login throttle. The throttle needs a Redis
// client passed through Builder.WithRedis.
type SecurityConfig struct {
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	RedisPrefix           string
}

// ValidationMode decides how middleware checks bearer tokens.
type ValidationMode int

const (
	// ModeInherit defers to Config.ValidationMode. Only valid as a route override.
	ModeInherit ValidationMode = -1

	// ModeJWTOnly trusts a valid signature and never reads the store.
	ModeJWTOnly ValidationMode = iota
	// ModeStrict also requires the token to be in the account's active list.
	ModeStrict
)

// RouteMode is the per-route override accepted by Engine.Validate.
type RouteMode = ValidationMode

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the stock configuration. JWT.PrivateKey is left
// empty and must be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			TokenTTL:      0,
			SigningMethod: "hs256",
		},
		Password: PasswordConfig{
			Algorithm:      string(password.AlgorithmArgon2id),
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			BcryptCost:     password.DefaultBcryptCost,
			UpgradeOnLogin: true,
		},
		Account: AccountConfig{
			MinPasswordLength:            account.DefaultMinPasswordLength,
			ForbiddenPasswordSubstring:   account.DefaultForbiddenPasswordSubstring,
			AtomicCascadeDelete:          true,
			RevokeTokensOnPasswordChange: false,
		},
		Security: SecurityConfig{
			EnableLoginThrottle:   false,
			EnableIPThrottle:      false,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			RedisPrefix:           "ga",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		ValidationMode: ModeStrict,
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if cfg.JWT.VerifyKeys != nil {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c *Config) hasherConfig() password.Config {
	return password.Config{
		Algorithm:   password.Algorithm(c.Password.Algorithm),
		Memory:      c.Password.Memory,
		Time:        c.Password.Time,
		Parallelism: c.Password.Parallelism,
		SaltLength:  c.Password.SaltLength,
		KeyLength:   c.Password.KeyLength,
		BcryptCost:  c.Password.BcryptCost,
	}
}

func (c *Config) policy() account.Policy {
	return account.Policy{
		MinPasswordLength:          c.Account.MinPasswordLength,
		ForbiddenPasswordSubstring: c.Account.ForbiddenPasswordSubstring,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting in c.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.TokenTTL < 0 {
		return errors.New("JWT TokenTTL must be >= 0")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if c.JWT.Issuer != "" && strings.TrimSpace(c.JWT.Issuer) == "" {
		return errors.New("JWT Issuer must not be blank")
	}
	if c.JWT.Audience != "" && strings.TrimSpace(c.JWT.Audience) == "" {
		return errors.New("JWT Audience must not be blank")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("hs256 requires PrivateKey")
		}
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 PrivateKey must be at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.JWT.PublicKey) == 0 && len(c.JWT.VerifyKeys) == 0 {
			return errors.New("ed25519 requires PublicKey or VerifyKeys")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if len(c.JWT.VerifyKeys) > 0 {
		kid := strings.TrimSpace(c.JWT.KeyID)
		if kid == "" {
			return errors.New("JWT KeyID is required when VerifyKeys is set")
		}
		verifyKey, ok := c.JWT.VerifyKeys[kid]
		if !ok {
			return errors.New("JWT KeyID must be present in VerifyKeys")
		}
		if c.JWT.SigningMethod == "hs256" && !bytes.Equal(verifyKey, c.JWT.PrivateKey) {
			return errors.New("JWT VerifyKeys[KeyID] must equal the hs256 PrivateKey")
		}
	}

	// Password
	switch password.Algorithm(c.Password.Algorithm) {
	case "", password.AlgorithmArgon2id:
		if c.Password.Memory < 8*1024 {
			return errors.New("Password Memory must be >= 8192 KB")
		}
		if c.Password.Time < 1 {
			return errors.New("Password Time must be >= 1")
		}
		if c.Password.Parallelism < 1 {
			return errors.New("Password Parallelism must be >= 1")
		}
		if c.Password.SaltLength < 16 {
			return errors.New("Password SaltLength must be >= 16")
		}
		if c.Password.KeyLength < 16 {
			return errors.New("Password KeyLength must be >= 16")
		}
	case password.AlgorithmBcrypt:
		if c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31 {
			return errors.New("Password BcryptCost must be between 4 and 31")
		}
	default:
		return errors.New("unsupported password algorithm")
	}

	// Account
	if c.Account.MinPasswordLength < 1 {
		return errors.New("Account MinPasswordLength must be >= 1")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("LoginCooldownDuration must be > 0")
		}
	}
	if c.Security.EnableIPThrottle && !c.Security.EnableLoginThrottle {
		return errors.New("EnableIPThrottle requires EnableLoginThrottle")
	}

	if c.ValidationMode != ModeJWTOnly && c.ValidationMode != ModeStrict {
		return errors.New("invalid ValidationMode")
	}

	return nil
}
