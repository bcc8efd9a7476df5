package store

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultProbeInterval = 5 * time.Second

// FailoverBackend sends every call to a primary [Backend] and retries it against a
// fallback when the primary reports [ErrUnavailable]. Once a fault is seen the backend
// stays degraded, routing straight to the fallback, until a rate-limited PING of the
// primary succeeds.
//
// Only [ErrUnavailable] triggers failover; [ErrNotFound] and [ErrNotInteger] are
// ordinary results and are returned as-is.
type FailoverBackend struct {
	primary  Backend
	fallback Backend
	logger   *zap.Logger
	probe    *rate.Limiter
	degraded atomic.Bool
	failures atomic.Uint64
}

// FailoverOption configures a [FailoverBackend].
type FailoverOption func(*FailoverBackend)

// WithFailoverLogger sets the logger used to report faults and recovery.
func WithFailoverLogger(logger *zap.Logger) FailoverOption {
	return func(f *FailoverBackend) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithProbeInterval sets the minimum spacing between recovery probes of the primary.
func WithProbeInterval(interval time.Duration) FailoverOption {
	return func(f *FailoverBackend) {
		if interval > 0 {
			f.probe = rate.NewLimiter(rate.Every(interval), 1)
		}
	}
}

// NewFailoverBackend wraps primary and fallback.
func NewFailoverBackend(primary, fallback Backend, opts ...FailoverOption) *FailoverBackend {
	f := &FailoverBackend{
		primary:  primary,
		fallback: fallback,
		logger:   zap.NewNop(),
		probe:    rate.NewLimiter(rate.Every(defaultProbeInterval), 1),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name identifies the backend in logs.
func (f *FailoverBackend) Name() string {
	return "failover(" + f.primary.Name() + "," + f.fallback.Name() + ")"
}

// Degraded reports whether calls are currently routed to the fallback.
func (f *FailoverBackend) Degraded() bool {
	return f.degraded.Load()
}

// Failures returns how many primary calls have failed over since construction.
func (f *FailoverBackend) Failures() uint64 {
	return f.failures.Load()
}

// active picks the backend for the next call, probing the primary when degraded.
func (f *FailoverBackend) active(ctx context.Context) Backend {
	if !f.degraded.Load() {
		return f.primary
	}
	if !f.probe.Allow() {
		return f.fallback
	}
	if err := f.primary.Ping(ctx); err != nil {
		return f.fallback
	}
	if f.degraded.CompareAndSwap(true, false) {
		f.logger.Info("primary store reachable again, leaving fallback",
			zap.String("primary", f.primary.Name()))
	}
	return f.primary
}

func (f *FailoverBackend) markDegraded(op string, err error) {
	f.failures.Add(1)
	if f.degraded.CompareAndSwap(false, true) {
		// Spend the probe token so the next probe waits a full interval.
		f.probe.Allow()
		f.logger.Warn("primary store unavailable, failing over",
			zap.String("op", op),
			zap.String("primary", f.primary.Name()),
			zap.String("fallback", f.fallback.Name()),
			zap.Error(err))
		return
	}
	f.logger.Debug("primary store call failed while degraded",
		zap.String("op", op),
		zap.Error(err))
}

func run[T any](ctx context.Context, f *FailoverBackend, op string, call func(Backend) (T, error)) (T, error) {
	b := f.active(ctx)
	v, err := call(b)
	if err == nil || b == f.fallback || !errors.Is(err, ErrUnavailable) {
		return v, err
	}

	f.markDegraded(op, err)
	v, err = call(f.fallback)
	if err != nil && errors.Is(err, ErrUnavailable) {
		f.logger.Error("fallback store failed",
			zap.String("op", op),
			zap.String("fallback", f.fallback.Name()),
			zap.Error(err))
	}
	return v, err
}

func (f *FailoverBackend) Get(ctx context.Context, key string) ([]byte, error) {
	return run(ctx, f, "get", func(b Backend) ([]byte, error) {
		return b.Get(ctx, key)
	})
}

func (f *FailoverBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := run(ctx, f, "set", func(b Backend) (struct{}, error) {
		return struct{}{}, b.Set(ctx, key, value, ttl)
	})
	return err
}

func (f *FailoverBackend) Delete(ctx context.Context, keys ...string) (int64, error) {
	return run(ctx, f, "delete", func(b Backend) (int64, error) {
		return b.Delete(ctx, keys...)
	})
}

func (f *FailoverBackend) Increment(ctx context.Context, key string) (int64, error) {
	return run(ctx, f, "increment", func(b Backend) (int64, error) {
		return b.Increment(ctx, key)
	})
}

func (f *FailoverBackend) Expire(ctx context.Context, key string, ttl time.Duration) error {
	_, err := run(ctx, f, "expire", func(b Backend) (struct{}, error) {
		return struct{}{}, b.Expire(ctx, key, ttl)
	})
	return err
}

func (f *FailoverBackend) TTL(ctx context.Context, key string) (time.Duration, error) {
	return run(ctx, f, "ttl", func(b Backend) (time.Duration, error) {
		return b.TTL(ctx, key)
	})
}

func (f *FailoverBackend) CountPrefix(ctx context.Context, prefix string) (int64, error) {
	return run(ctx, f, "count_prefix", func(b Backend) (int64, error) {
		return b.CountPrefix(ctx, prefix)
	})
}

func (f *FailoverBackend) ZAdd(ctx context.Context, key string, score float64, member string) error {
	_, err := run(ctx, f, "zadd", func(b Backend) (struct{}, error) {
		return struct{}{}, b.ZAdd(ctx, key, score, member)
	})
	return err
}

func (f *FailoverBackend) ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error) {
	return run(ctx, f, "zrangebyscore", func(b Backend) ([]string, error) {
		return b.ZRangeByScore(ctx, key, min, max)
	})
}

func (f *FailoverBackend) ZRemRangeByScore(ctx context.Context, key string, min, max float64) (int64, error) {
	return run(ctx, f, "zremrangebyscore", func(b Backend) (int64, error) {
		return b.ZRemRangeByScore(ctx, key, min, max)
	})
}

func (f *FailoverBackend) ZCard(ctx context.Context, key string) (int64, error) {
	return run(ctx, f, "zcard", func(b Backend) (int64, error) {
		return b.ZCard(ctx, key)
	})
}

// Ping succeeds when either store answers.
func (f *FailoverBackend) Ping(ctx context.Context) error {
	if err := f.primary.Ping(ctx); err == nil {
		return nil
	}
	return f.fallback.Ping(ctx)
}
