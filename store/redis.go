package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultOperationTimeout = 2 * time.Second
	scanBatchSize           = 500
)

// RedisBackend is a [Backend] backed by a Redis client.
//
// Every call is bounded by the configured operation timeout so an unreachable server
// surfaces as [ErrUnavailable] instead of blocking the caller.
type RedisBackend struct {
	redis   redis.UniversalClient
	timeout time.Duration
}

// NewRedisBackend creates a [RedisBackend]. A non-positive timeout selects the default
// of two seconds.
func NewRedisBackend(client redis.UniversalClient, timeout time.Duration) *RedisBackend {
	if timeout <= 0 {
		timeout = defaultOperationTimeout
	}
	return &RedisBackend{
		redis:   client,
		timeout: timeout,
	}
}

// Name identifies the backend in logs.
func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, b.timeout)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

// Get returns the value stored at key.
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	data, err := b.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, unavailable("get", err)
	}
	return data, nil
}

// Set stores value at key with an optional TTL.
func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	if ttl < 0 {
		ttl = 0
	}
	if err := b.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return unavailable("set", err)
	}
	return nil
}

// Delete removes keys and reports how many existed.
func (b *RedisBackend) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	n, err := b.redis.Del(ctx, keys...).Result()
	if err != nil {
		return 0, unavailable("del", err)
	}
	return n, nil
}

// Increment atomically increments the integer at key, creating it at 1.
func (b *RedisBackend) Increment(ctx context.Context, key string) (int64, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	n, err := b.redis.Incr(ctx, key).Result()
	if err != nil {
		var rerr redis.Error
		if errors.As(err, &rerr) {
			return 0, fmt.Errorf("%w: %v", ErrNotInteger, err)
		}
		return 0, unavailable("incr", err)
	}
	return n, nil
}

// Expire sets a TTL on an existing key. Missing keys are ignored.
func (b *RedisBackend) Expire(ctx context.Context, key string, ttl time.Duration) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	if err := b.redis.PExpire(ctx, key, ttl).Err(); err != nil {
		return unavailable("pexpire", err)
	}
	return nil
}

// TTL returns the remaining lifetime of key, or [NoExpiry] for persistent keys.
func (b *RedisBackend) TTL(ctx context.Context, key string) (time.Duration, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	d, err := b.redis.PTTL(ctx, key).Result()
	if err != nil {
		return 0, unavailable("pttl", err)
	}
	switch d {
	case -2:
		return 0, ErrNotFound
	case -1:
		return NoExpiry, nil
	}
	return d, nil
}

// CountPrefix counts keys starting with prefix using incremental SCAN.
func (b *RedisBackend) CountPrefix(ctx context.Context, prefix string) (int64, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	var (
		cursor uint64
		total  int64
	)
	for {
		keys, next, err := b.redis.Scan(ctx, cursor, prefix+"*", scanBatchSize).Result()
		if err != nil {
			return 0, unavailable("scan", err)
		}
		total += int64(len(keys))
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

// ZAdd adds member with score to the sorted set at key.
func (b *RedisBackend) ZAdd(ctx context.Context, key string, score float64, member string) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	if err := b.redis.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return unavailable("zadd", err)
	}
	return nil
}

// ZRangeByScore returns members with min <= score <= max in ascending score order.
func (b *RedisBackend) ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	members, err := b.redis.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: formatScore(min),
		Max: formatScore(max),
	}).Result()
	if err != nil {
		return nil, unavailable("zrangebyscore", err)
	}
	return members, nil
}

// ZRemRangeByScore removes members with min <= score <= max.
func (b *RedisBackend) ZRemRangeByScore(ctx context.Context, key string, min, max float64) (int64, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	n, err := b.redis.ZRemRangeByScore(ctx, key, formatScore(min), formatScore(max)).Result()
	if err != nil {
		return 0, unavailable("zremrangebyscore", err)
	}
	return n, nil
}

// ZCard returns the cardinality of the sorted set at key.
func (b *RedisBackend) ZCard(ctx context.Context, key string) (int64, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	n, err := b.redis.ZCard(ctx, key).Result()
	if err != nil {
		return 0, unavailable("zcard", err)
	}
	return n, nil
}

// Ping checks server reachability.
func (b *RedisBackend) Ping(ctx context.Context) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	if err := b.redis.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func formatScore(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
