package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
)

const (
	storeRedis    = "redis"
	storePostgres = "postgres"
	storeMongo    = "mongo"
)

// config is the daemon runtime configuration loaded from ACCOUNTD_* variables.
type config struct {
	HTTPAddr        string
	LogLevel        string
	ShutdownTimeout time.Duration

	Store       string
	RedisAddr   string
	RedisPrefix string
	DatabaseURL string
	MongoURI    string
	MongoDB     string

	TokenSecret    string
	TokenTTL       time.Duration
	TokenIssuer    string
	ValidationMode string

	PasswordAlgorithm string

	LoginThrottle     bool
	IPThrottle        bool
	MaxLoginAttempts  int
	LoginCooldown     time.Duration
	RevokeOnPwdChange bool

	Audit   bool
	Metrics bool
}

func loadConfig() (config, error) {
	cfg := config{
		HTTPAddr:        envString("ACCOUNTD_HTTP_ADDR", ":8080"),
		LogLevel:        envString("ACCOUNTD_LOG_LEVEL", "info"),
		ShutdownTimeout: envDuration("ACCOUNTD_SHUTDOWN_TIMEOUT", 10*time.Second),

		Store:       strings.ToLower(envString("ACCOUNTD_STORE", storeRedis)),
		RedisAddr:   envString("ACCOUNTD_REDIS_ADDR", ""),
		RedisPrefix: envString("ACCOUNTD_REDIS_PREFIX", "ga"),
		DatabaseURL: envString("ACCOUNTD_DATABASE_URL", ""),
		MongoURI:    envString("ACCOUNTD_MONGO_URI", ""),
		MongoDB:     envString("ACCOUNTD_MONGO_DB", "goaccount"),

		TokenSecret:    envString("ACCOUNTD_TOKEN_SECRET", ""),
		TokenTTL:       envDuration("ACCOUNTD_TOKEN_TTL", 0),
		TokenIssuer:    envString("ACCOUNTD_TOKEN_ISSUER", ""),
		ValidationMode: strings.ToLower(envString("ACCOUNTD_VALIDATION_MODE", "strict")),

		PasswordAlgorithm: strings.ToLower(envString("ACCOUNTD_PASSWORD_ALGORITHM", "argon2id")),

		LoginThrottle:     envBool("ACCOUNTD_LOGIN_THROTTLE", true),
		IPThrottle:        envBool("ACCOUNTD_IP_THROTTLE", false),
		MaxLoginAttempts:  envInt("ACCOUNTD_MAX_LOGIN_ATTEMPTS", 5),
		LoginCooldown:     envDuration("ACCOUNTD_LOGIN_COOLDOWN", 15*time.Minute),
		RevokeOnPwdChange: envBool("ACCOUNTD_REVOKE_ON_PASSWORD_CHANGE", false),

		Audit:   envBool("ACCOUNTD_AUDIT", true),
		Metrics: envBool("ACCOUNTD_METRICS", true),
	}

	if cfg.TokenSecret == "" {
		return config{}, errors.New("ACCOUNTD_TOKEN_SECRET is required")
	}
	switch cfg.Store {
	case storeRedis:
	case storePostgres:
		if cfg.DatabaseURL == "" {
			return config{}, errors.New("ACCOUNTD_DATABASE_URL is required for the postgres store")
		}
	case storeMongo:
		if cfg.MongoURI == "" {
			return config{}, errors.New("ACCOUNTD_MONGO_URI is required for the mongo store")
		}
	default:
		return config{}, fmt.Errorf("unknown ACCOUNTD_STORE %q", cfg.Store)
	}
	return cfg, nil
}

// needsRedis reports whether a Redis client must be opened.
func (c config) needsRedis() bool {
	return c.Store == storeRedis || c.LoginThrottle
}

// engineConfig maps the daemon settings onto the core configuration and
// validates the result.
func (c config) engineConfig() (goAccount.Config, error) {
	ec := goAccount.DefaultConfig()
	ec.JWT.PrivateKey = []byte(c.TokenSecret)
	ec.JWT.TokenTTL = c.TokenTTL
	ec.JWT.Issuer = c.TokenIssuer
	ec.Password.Algorithm = c.PasswordAlgorithm

	switch c.ValidationMode {
	case "strict":
		ec.ValidationMode = goAccount.ModeStrict
	case "jwt", "jwt-only", "jwt_only":
		ec.ValidationMode = goAccount.ModeJWTOnly
	default:
		return goAccount.Config{}, fmt.Errorf("unknown ACCOUNTD_VALIDATION_MODE %q", c.ValidationMode)
	}

	ec.Account.RevokeTokensOnPasswordChange = c.RevokeOnPwdChange

	ec.Security.EnableLoginThrottle = c.LoginThrottle
	ec.Security.EnableIPThrottle = c.LoginThrottle && c.IPThrottle
	ec.Security.MaxLoginAttempts = c.MaxLoginAttempts
	ec.Security.LoginCooldownDuration = c.LoginCooldown
	ec.Security.RedisPrefix = c.RedisPrefix

	ec.Audit.Enabled = c.Audit
	ec.Metrics.Enabled = c.Metrics
	ec.Metrics.EnableLatencyHistograms = c.Metrics

	if err := ec.Validate(); err != nil {
		return goAccount.Config{}, err
	}
	return ec, nil
}
