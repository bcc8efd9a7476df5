package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key does not exist or has expired.
	ErrNotFound = errors.New("store: key not found")
	// ErrUnavailable wraps every transport or server fault of a backend.
	ErrUnavailable = errors.New("store: backend unavailable")
	// ErrNotInteger is returned by Increment when the stored value is not an integer.
	ErrNotInteger = errors.New("store: value is not an integer")
)

// NoExpiry is returned by TTL for keys that exist without an expiry.
const NoExpiry time.Duration = -1

// Backend is the storage contract shared by all implementations.
//
// A ttl <= 0 passed to Set means the key does not expire. Delete reports how many of the
// given keys existed. Ordered-set operations follow Redis sorted-set semantics with
// inclusive score bounds.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) (int64, error)
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	CountPrefix(ctx context.Context, prefix string) (int64, error)

	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error)
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) (int64, error)
	ZCard(ctx context.Context, key string) (int64, error)

	Ping(ctx context.Context) error
	Name() string
}

// DegradedReporter is implemented by backends that can run in a degraded mode.
type DegradedReporter interface {
	Degraded() bool
}
