package goCaptcha

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditQueue hands engine events to the sink from a single goroutine. Lockouts, rate
// limiting and storage failures travel on their own lane: they are delivered ahead of
// routine traffic and DropIfFull never discards them.
type auditQueue struct {
	sink     AuditSink
	dropFull bool

	routine  chan AuditEvent
	security chan AuditEvent

	stop     chan struct{}
	stopped  chan struct{}
	closed   atomic.Bool
	shutdown sync.Once

	dropped atomic.Uint64
}

func newAuditQueue(cfg AuditConfig, sink AuditSink) *auditQueue {
	if !cfg.Enabled {
		return nil
	}
	size := max(cfg.BufferSize, 1)
	if sink == nil {
		sink = NoOpSink{}
	}

	q := &auditQueue{
		sink:     sink,
		dropFull: cfg.DropIfFull,
		routine:  make(chan AuditEvent, size),
		security: make(chan AuditEvent, size),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go q.run()
	return q
}

func isSecurityEvent(eventType string) bool {
	switch eventType {
	case auditEventLockoutTriggered, auditEventRateLimited, auditEventStorageFailure:
		return true
	}
	return false
}

func (q *auditQueue) run() {
	defer close(q.stopped)

	for {
		select {
		case ev := <-q.security:
			q.sink.Emit(context.Background(), ev)
			continue
		default:
		}

		select {
		case ev := <-q.security:
			q.sink.Emit(context.Background(), ev)
		case ev := <-q.routine:
			q.sink.Emit(context.Background(), ev)
		case <-q.stop:
			q.flush(q.security)
			q.flush(q.routine)
			return
		}
	}
}

func (q *auditQueue) flush(ch chan AuditEvent) {
	for {
		select {
		case ev := <-ch:
			q.sink.Emit(context.Background(), ev)
		default:
			return
		}
	}
}

// Emit queues event. Security events wait for room. Routine events are dropped and
// counted on a full buffer when DropIfFull is set, and wait otherwise. A wait ends early
// when ctx is done or the queue closes.
func (q *auditQueue) Emit(ctx context.Context, event AuditEvent) {
	if q == nil || q.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	lane := q.routine
	if isSecurityEvent(event.EventType) {
		lane = q.security
	} else if q.dropFull {
		select {
		case lane <- event:
		case <-q.stop:
		default:
			q.dropped.Add(1)
		}
		return
	}

	select {
	case lane <- event:
	case <-ctx.Done():
	case <-q.stop:
	}
}

// Close stops accepting events and returns once everything queued reached the sink.
func (q *auditQueue) Close() {
	if q == nil {
		return
	}
	q.shutdown.Do(func() {
		q.closed.Store(true)
		close(q.stop)
		<-q.stopped
	})
}

// Dropped counts routine events discarded on a full buffer.
func (q *auditQueue) Dropped() uint64 {
	if q == nil {
		return 0
	}
	return q.dropped.Load()
}
