package goAccount

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = false
	sink := &countingSink{}
	env := newTestEnv(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })

	mustCreate(t, env.engine, "Ann", "ann@x.com", "s3cret!")
	_, _, _ = env.engine.Login(WithClientIP(context.Background(), "203.0.113.1"), "ann@x.com", "wrong-pass")
	time.Sleep(30 * time.Millisecond)

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditEnabledSinkReceivesEventWithFields(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 16
	sink := newCaptureSink(16)
	env := newTestEnv(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })

	ann := mustCreate(t, env.engine, "Ann", "ann@x.com", "s3cret!")
	created := sink.waitFor(t, auditEventAccountCreated)
	if !created.Success || created.AccountID != ann.ID {
		t.Fatalf("unexpected create event %+v", created)
	}

	ctx := WithClientIP(context.Background(), "198.51.100.33")
	_, _, _ = env.engine.Login(ctx, "ann@x.com", "s3cret!")

	ev := sink.waitFor(t, auditEventLoginSuccess)
	if ev.IP != "198.51.100.33" {
		t.Fatalf("expected IP 198.51.100.33, got %q", ev.IP)
	}
	if ev.AccountID != ann.ID {
		t.Fatalf("expected account %q, got %q", ann.ID, ev.AccountID)
	}
	if ev.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be populated")
	}
}

func TestAuditValidationFailureNamesField(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	sink := newCaptureSink(16)
	env := newTestEnv(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })

	_, _ = env.engine.CreateAccount(context.Background(), CreateAccountRequest{
		Name: "Ann", Email: "ann@x.com", Password: "mypasswordX",
	})

	ev := sink.waitFor(t, auditEventAccountCreateFailure)
	if ev.Error != string(auditErrValidation) {
		t.Fatalf("expected validation code, got %q", ev.Error)
	}
	if ev.Metadata["field"] != "password" {
		t.Fatalf("expected field metadata, got %v", ev.Metadata)
	}
}

func TestAuditBufferFullDropIfFullTrueDoesNotBlock(t *testing.T) {
	metrics := NewMetrics(MetricsConfig{Enabled: true})
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink, metrics, nil)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	start := time.Now()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if dispatcher.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
	if got := metrics.Value(MetricAuditDropped); got != dispatcher.Dropped() {
		t.Fatalf("expected drop metric per dropped event, got %d vs %d", got, dispatcher.Dropped())
	}
}

func TestAuditBufferFullDropIfFullFalseBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: false,
	}, sink, nil, nil)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestAuditDroppedFeedsMetrics(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 1
	cfg.Metrics.Enabled = true
	sink := newGateSink()
	env := newTestEnv(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })
	// unblock the sink before the engine's Close runs
	t.Cleanup(func() { close(sink.gate) })

	for i := 0; i < 4; i++ {
		_, _ = env.engine.Authenticate(context.Background(), "ghost@x.com", "whatever1")
	}

	dropped := env.engine.AuditDropped()
	if dropped == 0 {
		t.Fatal("expected dropped events with a blocked sink")
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricAuditDropped]; got != dropped {
		t.Fatalf("expected metric %d to match dropped %d", got, dropped)
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: auditEventLoginSuccess,
		AccountID: "a1",
		IP:        "127.0.0.1",
		Success:   true,
	}
	sink.Emit(context.Background(), event)
	sink.Emit(context.Background(), event)

	if !buf.Contains("login_success") {
		t.Fatal("expected JSON log line to contain event type")
	}
	if !buf.Contains("\"account_id\":\"a1\"") {
		t.Fatal("expected JSON log line to contain account id")
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one line per event, got %d", len(lines))
	}
}

func TestAuditSlogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewSlogSink(logger)

	sink.Emit(context.Background(), AuditEvent{
		EventType: auditEventLoginFailure,
		AccountID: "a1",
		Error:     string(auditErrInvalidCredentials),
		Metadata:  map[string]string{"reason": "password_mismatch"},
	})

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if record["level"] != "WARN" || record["msg"] != auditEventLoginFailure {
		t.Fatalf("unexpected record %v", record)
	}
	if record["component"] != "audit" || record["account_id"] != "a1" || record["reason"] != "password_mismatch" {
		t.Fatalf("missing attributes in %v", record)
	}
}

func TestAuditDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	sink := &countingSink{}
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
		DropIfFull: true,
	}, sink, nil, nil)

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Close()
	dispatcher.Close()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	if sink.Count() != 1 {
		t.Fatalf("expected the accepted event to be flushed on close, got %d", sink.Count())
	}
}

func TestAuditEmitAfterCloseCountsAsDropped(t *testing.T) {
	metrics := NewMetrics(MetricsConfig{Enabled: true})
	sink := &countingSink{}
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
	}, sink, metrics, nil)

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Close()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})

	if sink.Count() != 1 {
		t.Fatalf("expected only the accepted event delivered, got %d", sink.Count())
	}
	if dispatcher.Dropped() != 2 {
		t.Fatalf("expected two refused events, got %d", dispatcher.Dropped())
	}
	if got := metrics.Value(MetricAuditDropped); got != 2 {
		t.Fatalf("expected drop metric 2, got %d", got)
	}
}

func TestAuditEventsStampedWithEngineClock(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	sink := newCaptureSink(4)
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
	}, sink, nil, func() time.Time { return fixed })
	defer dispatcher.Close()

	given := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "stamped"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "kept", Timestamp: given})

	if ev := sink.waitFor(t, "stamped"); !ev.Timestamp.Equal(fixed) || ev.Timestamp.Location() != time.UTC {
		t.Fatalf("expected clock time in UTC, got %v", ev.Timestamp)
	}
	if ev := sink.waitFor(t, "kept"); !ev.Timestamp.Equal(given) {
		t.Fatalf("expected caller timestamp kept, got %v", ev.Timestamp)
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 32
	cfg.Audit.DropIfFull = false
	sink := newCaptureSink(32)
	env := newTestEnv(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })
	ctx := context.Background()

	sensitivePassword := "s3cret!"
	acct := mustCreate(t, env.engine, "Ann", "ann@x.com", sensitivePassword)
	_, token, err := env.engine.Login(ctx, "ann@x.com", sensitivePassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	_, _ = env.engine.Authenticate(ctx, "ann@x.com", "wrong-pass")
	if err := env.engine.Logout(ctx, token); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	secretNeedles := []string{sensitivePassword, "wrong-pass", token, acct.PasswordHash}

	events := make([]AuditEvent, 0, 8)
	timeout := time.After(2 * time.Second)
collectLoop:
	for len(events) < 4 {
		select {
		case ev := <-sink.events:
			events = append(events, ev)
		case <-timeout:
			break collectLoop
		}
	}

	if len(events) == 0 {
		t.Fatal("expected at least one audit event")
	}

	for _, ev := range events {
		for _, needle := range secretNeedles {
			if strings.Contains(ev.Error, needle) {
				t.Fatalf("sensitive value leaked in audit error field: %q", needle)
			}
			for k, v := range ev.Metadata {
				if strings.Contains(k, needle) || strings.Contains(v, needle) {
					t.Fatalf("sensitive value leaked in audit metadata: %q", needle)
				}
			}
		}
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

func (b *syncBuffer) Contains(v string) bool {
	return strings.Contains(b.String(), v)
}
