package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goCaptcha/store"
)

const (
	defaultPrefix = "crl"
	unknownIP     = "unknown"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	Prefix string
	Limit  int
	Window time.Duration
}

// Result is the outcome of one counted request.
type Result struct {
	Allowed   bool
	Count     int64
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the caller should wait before the window resets.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed || r.ResetAt.IsZero() {
		return 0
	}
	d := r.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Limiter enforces a per-IP request budget using counters in a [store.Backend].
type Limiter struct {
	backend store.Backend
	config  Config
	now     func() time.Time
}

// New creates a rate [Limiter]. A nil clock selects time.Now.
func New(backend store.Backend, cfg Config, now func() time.Time) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		backend: backend,
		config:  cfg,
		now:     now,
	}
}

// Key returns the counter key for ip.
func (l *Limiter) Key(ip string) string {
	if ip == "" {
		ip = unknownIP
	}
	return l.config.Prefix + ":" + ip
}

// Prefix returns the key prefix shared by all counters, including the separator.
func (l *Limiter) Prefix() string {
	return l.config.Prefix + ":"
}

// Check counts one request for ip and reports whether it fits the window budget.
func (l *Limiter) Check(ctx context.Context, ip string) (Result, error) {
	key := l.Key(ip)

	count, err := l.backend.Increment(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.backend.Expire(ctx, key, l.config.Window); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	ttl, err := l.backend.TTL(ctx, key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		ttl = 0
	case err != nil:
		return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	case ttl == store.NoExpiry:
		// A counter that lost its expiry would never reset.
		if err := l.backend.Expire(ctx, key, l.config.Window); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		ttl = l.config.Window
	}

	return l.result(count, ttl), nil
}

// Allow is Check reduced to an error: nil when allowed, [ErrRateLimited] otherwise.
func (l *Limiter) Allow(ctx context.Context, ip string) error {
	res, err := l.Check(ctx, ip)
	if err != nil {
		return err
	}
	if !res.Allowed {
		return ErrRateLimited
	}
	return nil
}

// Count returns the current counter for ip without incrementing it.
// Missing keys return zero.
func (l *Limiter) Count(ctx context.Context, ip string) (int64, error) {
	raw, err := l.backend.Get(ctx, l.Key(ip))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || n < 0 {
		return 0, nil
	}
	return n, nil
}

// Entries returns how many IPs currently hold a counter.
func (l *Limiter) Entries(ctx context.Context) (int64, error) {
	n, err := l.backend.CountPrefix(ctx, l.Prefix())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n, nil
}

func (l *Limiter) result(count int64, ttl time.Duration) Result {
	remaining := int64(l.config.Limit) - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= int64(l.config.Limit),
		Count:     count,
		Limit:     l.config.Limit,
		Remaining: int(remaining),
		ResetAt:   l.now().Add(ttl),
	}
}
