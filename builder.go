package goAccount

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/internal/rate"
	"github.com/MrEthical07/goAccount/jwt"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/store"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder can be built only once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	accounts store.AccountStore
	tasks    store.TaskStore

	emailValid func(string) bool
	auditSink  AuditSink
	now        func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore uses backend for both accounts and tasks.
func (b *Builder) WithStore(backend store.Backend) *Builder {
	b.accounts = backend
	b.tasks = backend
	return b
}

// WithAccountStore sets the store for accounts and their token lists.
func (b *Builder) WithAccountStore(s store.AccountStore) *Builder {
	b.accounts = s
	return b
}

// WithTaskStore sets the store for tasks.
func (b *Builder) WithTaskStore(s store.TaskStore) *Builder {
	b.tasks = s
	return b
}

// WithRedis supplies the client used by the login throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithEmailValidator replaces the built-in email format rule.
func (b *Builder) WithEmailValidator(valid func(string) bool) *Builder {
	b.emailValid = valid
	return b
}

// WithAuditSink sets the destination for audit events. It has no effect
// unless Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles latency histograms for login and token
// validation. Counters must also be enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock overrides time.Now for timestamps written by the Engine.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.accounts == nil {
		return nil, fmt.Errorf("%w: account store required", ErrEngineNotReady)
	}
	tasks := b.tasks
	if tasks == nil {
		ts, ok := b.accounts.(store.TaskStore)
		if !ok {
			return nil, fmt.Errorf("%w: task store required", ErrEngineNotReady)
		}
		tasks = ts
	}
	if cfg.Security.EnableLoginThrottle && b.redis == nil {
		return nil, fmt.Errorf("%w: login throttle requires redis client", ErrEngineNotReady)
	}

	engine := &Engine{
		config:    cfg,
		accounts:  b.accounts,
		tasks:     tasks,
		now:       time.Now,
		newID:     newAccountID,
		newTaskID: newTaskID,
	}
	if b.now != nil {
		engine.now = b.now
	}

	// -------- PASSWORD HASHER --------
	hasher, err := password.New(cfg.hasherConfig())
	if err != nil {
		return nil, err
	}
	engine.hasher = hasher

	// -------- FIELD POLICY --------
	policy := cfg.policy()
	policy.EmailValid = b.emailValid
	policy.MaxPasswordBytes = hasher.MaxPasswordBytes()
	engine.policy = policy

	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("compute dummy digest: %w", err)
	}
	engine.dummyDigest = dummy

	// -------- TOKEN ISSUER --------
	jm, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.JWT.TokenTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cloneConfig(cfg).JWT.VerifyKeys,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	// -------- THROTTLE --------
	if cfg.Security.EnableLoginThrottle {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:                cfg.Security.RedisPrefix,
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		})
	}

	engine.metrics = NewMetrics(cfg.Metrics)
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink, engine.metrics, engine.now)

	b.built = true

	return engine, nil
}
