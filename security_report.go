package goAccount

import "time"

// SecurityReport is a read-only snapshot of the engine's security posture,
// returned by [Engine.SecurityReport]. It holds no key material.
type SecurityReport struct {
	SigningAlgorithm    string
	KeyRotationActive   bool
	ValidationMode      ValidationMode
	StrictMode          bool
	TokenTTL            time.Duration
	TokensExpire        bool
	PasswordAlgorithm   string
	Argon2              PasswordConfigReport
	BcryptCost          int
	UpgradeOnLogin      bool
	MinPasswordLength   int
	LoginThrottleActive bool
	IPThrottleActive    bool
	RevokeOnPwdChange   bool
	AtomicCascadeDelete bool
	AuditEnabled        bool
}

// PasswordConfigReport lists the argon2id parameters in effect.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SecurityReport summarises the configuration that bears on account and token
// security.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	cfg := e.config
	throttle := cfg.Security.EnableLoginThrottle &&
		cfg.Security.MaxLoginAttempts > 0 &&
		cfg.Security.LoginCooldownDuration > 0

	return SecurityReport{
		SigningAlgorithm:  cfg.JWT.SigningMethod,
		KeyRotationActive: len(cfg.JWT.VerifyKeys) > 1,
		ValidationMode:    cfg.ValidationMode,
		StrictMode:        cfg.ValidationMode == ModeStrict,
		TokenTTL:          cfg.JWT.TokenTTL,
		TokensExpire:      cfg.JWT.TokenTTL > 0,
		PasswordAlgorithm: cfg.Password.Algorithm,
		Argon2: PasswordConfigReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		},
		BcryptCost:          cfg.Password.BcryptCost,
		UpgradeOnLogin:      cfg.Password.UpgradeOnLogin,
		MinPasswordLength:   cfg.Account.MinPasswordLength,
		LoginThrottleActive: throttle,
		IPThrottleActive:    throttle && cfg.Security.EnableIPThrottle,
		RevokeOnPwdChange:   cfg.Account.RevokeTokensOnPasswordChange,
		AtomicCascadeDelete: cfg.Account.AtomicCascadeDelete,
		AuditEnabled:        cfg.Audit.Enabled,
	}
}
