package store

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// flakyBackend reports ErrUnavailable for every call while down is set.
type flakyBackend struct {
	*MemoryBackend
	down  atomic.Bool
	calls atomic.Int64
}

func newFlakyBackend() *flakyBackend {
	return &flakyBackend{MemoryBackend: NewMemoryBackend()}
}

func (f *flakyBackend) Name() string { return "flaky" }

func (f *flakyBackend) fail(op string) error {
	f.calls.Add(1)
	if f.down.Load() {
		return unavailable(op, context.DeadlineExceeded)
	}
	return nil
}

func (f *flakyBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := f.fail("get"); err != nil {
		return nil, err
	}
	return f.MemoryBackend.Get(ctx, key)
}

func (f *flakyBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := f.fail("set"); err != nil {
		return err
	}
	return f.MemoryBackend.Set(ctx, key, value, ttl)
}

func (f *flakyBackend) Increment(ctx context.Context, key string) (int64, error) {
	if err := f.fail("incr"); err != nil {
		return 0, err
	}
	return f.MemoryBackend.Increment(ctx, key)
}

func (f *flakyBackend) Ping(ctx context.Context) error {
	if err := f.fail("ping"); err != nil {
		return err
	}
	return nil
}

func TestFailoverRoutesToPrimaryWhenHealthy(t *testing.T) {
	primary := newFlakyBackend()
	fallback := NewMemoryBackend()
	f := NewFailoverBackend(primary, fallback)
	ctx := context.Background()

	require.NoError(t, f.Set(ctx, "k", []byte("v"), time.Minute))
	require.False(t, f.Degraded())

	_, err := fallback.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound, "healthy writes never reach the fallback")

	got, err := primary.MemoryBackend.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)
}

func TestFailoverRetriesOnFallbackAndLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	primary := newFlakyBackend()
	fallback := NewMemoryBackend()
	f := NewFailoverBackend(primary, fallback,
		WithFailoverLogger(zap.New(core)),
		WithProbeInterval(time.Hour))
	ctx := context.Background()

	primary.down.Store(true)

	n, err := f.Increment(ctx, "counter")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.True(t, f.Degraded())
	require.Equal(t, uint64(1), f.Failures())
	require.Equal(t, 1, logs.FilterMessage("primary store unavailable, failing over").Len())

	// Degraded calls skip the primary entirely until a probe is allowed.
	before := primary.calls.Load()
	n, err = f.Increment(ctx, "counter")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	require.Equal(t, before, primary.calls.Load())
}

func TestFailoverMissingKeyDoesNotTrip(t *testing.T) {
	primary := newFlakyBackend()
	f := NewFailoverBackend(primary, NewMemoryBackend())

	_, err := f.Get(context.Background(), "absent")
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, f.Degraded())
}

func TestFailoverRecoversAfterProbe(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	primary := newFlakyBackend()
	fallback := NewMemoryBackend()
	f := NewFailoverBackend(primary, fallback,
		WithFailoverLogger(zap.New(core)),
		WithProbeInterval(5*time.Millisecond))
	ctx := context.Background()

	primary.down.Store(true)
	require.NoError(t, f.Set(ctx, "during-outage", []byte("x"), time.Minute))
	require.True(t, f.Degraded())

	primary.down.Store(false)
	require.Eventually(t, func() bool {
		_ = f.Set(ctx, "after", []byte("y"), time.Minute)
		return !f.Degraded()
	}, time.Second, 10*time.Millisecond)

	require.Equal(t, 1, logs.FilterMessage("primary store reachable again, leaving fallback").Len())

	// Stores are never merged: data written during the outage stays on the fallback.
	_, err := f.Get(ctx, "during-outage")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = fallback.Get(ctx, "during-outage")
	require.NoError(t, err)
}

func TestFailoverPingNeedsOneStore(t *testing.T) {
	primary := newFlakyBackend()
	f := NewFailoverBackend(primary, NewMemoryBackend())

	primary.down.Store(true)
	require.NoError(t, f.Ping(context.Background()))
	require.Contains(t, f.Name(), "flaky")
}
