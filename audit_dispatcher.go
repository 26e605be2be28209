package goAccount

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// auditDispatcher hands account and token events to the sink on one worker
// goroutine. Every event it refuses, whether the queue is full or the engine
// is closed, is counted locally and in MetricAuditDropped. A nil dispatcher
// discards everything.
type auditDispatcher struct {
	sink     AuditSink
	queue    chan AuditEvent
	blocking bool
	now      func() time.Time
	metrics  *Metrics

	quit     chan struct{}
	worker   sync.WaitGroup
	shutdown sync.Once
	closed   atomic.Bool
	dropped  atomic.Uint64
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink, metrics *Metrics, now func() time.Time) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if now == nil {
		now = time.Now
	}

	d := &auditDispatcher{
		sink:     sink,
		queue:    make(chan AuditEvent, max(cfg.BufferSize, 1)),
		blocking: !cfg.DropIfFull,
		now:      now,
		metrics:  metrics,
		quit:     make(chan struct{}),
	}

	d.worker.Add(1)
	go d.run()

	return d
}

func (d *auditDispatcher) run() {
	defer d.worker.Done()

	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.quit:
			d.flush()
			return
		}
	}
}

// flush delivers whatever was queued before Close.
func (d *auditDispatcher) flush() {
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		default:
			return
		}
	}
}

func (d *auditDispatcher) deliver(event AuditEvent) {
	d.sink.Emit(context.Background(), event)
}

func (d *auditDispatcher) drop() {
	d.dropped.Add(1)
	d.metrics.Inc(MetricAuditDropped)
}

// Emit stamps event with the engine clock when it carries no timestamp and
// queues it. A blocking dispatcher waits for room or for ctx; otherwise a
// full queue drops the event.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	if d.closed.Load() {
		d.drop()
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now().UTC()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if !d.blocking {
		select {
		case d.queue <- event:
		case <-d.quit:
			d.drop()
		default:
			d.drop()
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.drop()
	case <-d.quit:
		d.drop()
	}
}

// Close refuses further events, flushes the queue and waits for the sink.
// It is safe to call more than once.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.shutdown.Do(func() {
		d.closed.Store(true)
		close(d.quit)
		d.worker.Wait()
	})
}

// Dropped reports how many events never reached the sink.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
