package goAccount

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/store/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// testConfig keeps argon2 at its floor so the suite stays quick.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = testSecret
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

type testEnv struct {
	engine *Engine
	store  *redisstore.Store
	redis  *redis.Client
	mr     *miniredis.Miniredis
}

func newTestEnv(t *testing.T, cfg Config, opts ...func(*Builder)) *testEnv {
	t.Helper()

	mr, rdb := newTestRedis(t)
	st := redisstore.New(rdb, "")

	b := New().WithConfig(cfg).WithStore(st).WithRedis(rdb)
	for _, opt := range opts {
		opt(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, store: st, redis: rdb, mr: mr}
}

func mustCreate(t *testing.T, e *Engine, name, email, plaintext string) *Account {
	t.Helper()

	acct, err := e.CreateAccount(context.Background(), CreateAccountRequest{
		Name:     name,
		Email:    email,
		Password: plaintext,
	})
	if err != nil {
		t.Fatalf("CreateAccount(%q) failed: %v", email, err)
	}
	return acct
}

// failingTasks fails every bulk delete and delegates everything else.
type failingTasks struct {
	store.TaskStore
	err error
}

func (f failingTasks) DeleteByOwner(context.Context, string) (int64, error) {
	return 0, f.err
}

// accountsOnly hides the CascadeDeleter of the wrapped store.
type accountsOnly struct {
	store.AccountStore
}

// failingCascade reports a backend failure from the atomic cascade.
type failingCascade struct {
	*redisstore.Store
}

func (failingCascade) DeleteAccountCascade(context.Context, string) (int64, error) {
	return 0, errors.New("transaction aborted")
}

// failingClear reports a backend failure when clearing an account's tokens.
type failingClear struct {
	*redisstore.Store
	err error
}

func (f failingClear) ClearTokens(context.Context, string) error {
	return f.err
}

type captureSink struct {
	events chan AuditEvent
}

func newCaptureSink(buffer int) *captureSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &captureSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *captureSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// waitFor returns the first event of eventType received within a second.
func (s *captureSink) waitFor(t *testing.T, eventType string) AuditEvent {
	t.Helper()

	timeout := time.After(time.Second)
	for {
		select {
		case ev := <-s.events:
			if ev.EventType == eventType {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for audit event %q", eventType)
			return AuditEvent{}
		}
	}
}
