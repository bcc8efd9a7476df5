package goCaptcha

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/goCaptcha/internal"
	"github.com/MrEthical07/goCaptcha/internal/rate"
	"github.com/MrEthical07/goCaptcha/session"
	"github.com/MrEthical07/goCaptcha/store"
	"github.com/MrEthical07/goCaptcha/token"
)

// Engine is the verification state machine. It is safe for concurrent use once built
// by [Builder.Build].
type Engine struct {
	config   Config
	backend  store.Backend
	sessions *session.Store
	limiter  *rate.Limiter
	tokens   *token.Service
	audit    *auditQueue
	metrics  *Metrics
	logger   *zap.Logger
	now      func() time.Time

	stopJanitor context.CancelFunc
	janitorDone <-chan struct{}
}

// Close stops background work and flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.stopJanitor != nil {
		e.stopJanitor()
		<-e.janitorDone
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many routine audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// Degraded reports whether storage is currently running on its fallback.
func (e *Engine) Degraded() bool {
	if e == nil {
		return false
	}
	if d, ok := e.backend.(store.DegradedReporter); ok {
		return d.Degraded()
	}
	return false
}

// Ping checks that at least one store answers.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.backend == nil {
		return ErrEngineNotReady
	}
	if err := e.backend.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (e *Engine) ready() bool {
	return e != nil && e.sessions != nil && e.tokens != nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) fingerprint(ctx context.Context) internal.Fingerprint {
	return internal.FingerprintIP(clientIPFromContext(ctx), e.config.Fingerprint.Salt)
}

// storageError converts a store failure into ErrStorageUnavailable, counting and
// logging it. Other errors pass through.
func (e *Engine) storageError(op string, err error) error {
	if !errors.Is(err, session.ErrStoreUnavailable) && !errors.Is(err, rate.ErrStoreUnavailable) && !errors.Is(err, store.ErrUnavailable) {
		return err
	}
	e.metricInc(MetricStorageUnavailable)
	e.logger.Error("captcha storage unavailable",
		zap.String("op", op),
		zap.String("backend", e.backend.Name()),
		zap.Error(err))
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
