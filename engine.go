package goAccount

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/internal/rate"
	"github.com/MrEthical07/goAccount/jwt"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/store"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Engine orchestrates the account lifecycle: field validation, hashing,
// token issue and revocation, and deletion of owned tasks.
//
// An Engine is built once with Builder.Build and is safe for concurrent use.
// It holds no mutable state of its own besides counters; every durable
// change goes through the configured stores.
type Engine struct {
	config      Config
	accounts    store.AccountStore
	tasks       store.TaskStore
	hasher      password.Hasher
	policy      account.Policy
	jwtManager  *jwt.Manager
	rateLimiter *rate.Limiter
	audit       *auditDispatcher
	metrics     *Metrics

	// dummyDigest is verified against when the email is unknown so that
	// both failure paths pay for one hash computation.
	dummyDigest string

	now       func() time.Time
	newID     func() string
	newTaskID func() string
}

// Close flushes pending audit events. The stores are owned by the caller and
// are not closed.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events never reached the sink, either
// because the queue was full or because the Engine was already closed.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of every counter and histogram. It is empty
// when metrics are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n int64) {
	if e == nil || e.metrics == nil || n <= 0 {
		return
	}
	e.metrics.Add(id, uint64(n))
}

func (e *Engine) observe(id MetricID, start time.Time) {
	if e.metrics == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

func (e *Engine) loadAccount(ctx context.Context, op, id string) (*Account, error) {
	if id == "" {
		return nil, ErrAccountNotFound
	}
	acct, err := e.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, storeErr(op, err)
	}
	return acct, nil
}

func newAccountID() string {
	return uuid.NewString()
}

func newTaskID() string {
	return ulid.Make().String()
}
