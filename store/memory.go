package store

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	zset      map[string]float64
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryBackend is an in-process [Backend]. Expired entries are dropped lazily on
// access and, when [MemoryBackend.StartJanitor] is running, periodically swept.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

// MemoryOption configures a [MemoryBackend].
type MemoryOption func(*MemoryBackend)

// WithMemoryClock overrides the wall clock used for expiry decisions.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *MemoryBackend) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemoryBackend creates an empty [MemoryBackend].
func NewMemoryBackend(opts ...MemoryOption) *MemoryBackend {
	m := &MemoryBackend{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name identifies the backend in logs.
func (m *MemoryBackend) Name() string { return "memory" }

// lookup returns the live entry for key. Caller holds m.mu.
func (m *MemoryBackend) lookup(key string, now time.Time) (*memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(now) {
		delete(m.entries, key)
		return nil, false
	}
	return e, true
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key, m.now())
	if !ok || e.zset != nil {
		return nil, ErrNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := &memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var n int64
	for _, key := range keys {
		if _, ok := m.lookup(key, now); ok {
			delete(m.entries, key)
			n++
		}
	}
	return n, nil
}

func (m *MemoryBackend) Increment(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key, m.now())
	if !ok {
		m.entries[key] = &memoryEntry{value: []byte("1")}
		return 1, nil
	}
	if e.zset != nil {
		return 0, ErrNotInteger
	}
	n, err := strconv.ParseInt(string(e.value), 10, 64)
	if err != nil {
		return 0, ErrNotInteger
	}
	n++
	e.value = strconv.AppendInt(e.value[:0], n, 10)
	return n, nil
}

func (m *MemoryBackend) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.lookup(key, now)
	if !ok {
		return nil
	}
	if ttl <= 0 {
		delete(m.entries, key)
		return nil
	}
	e.expiresAt = now.Add(ttl)
	return nil
}

func (m *MemoryBackend) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.lookup(key, now)
	if !ok {
		return 0, ErrNotFound
	}
	if e.expiresAt.IsZero() {
		return NoExpiry, nil
	}
	return e.expiresAt.Sub(now), nil
}

func (m *MemoryBackend) CountPrefix(_ context.Context, prefix string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var n int64
	for key, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, key)
			continue
		}
		if strings.HasPrefix(key, prefix) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryBackend) ZAdd(_ context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key, m.now())
	if !ok || e.zset == nil {
		e = &memoryEntry{zset: make(map[string]float64)}
		m.entries[key] = e
	}
	e.zset[member] = score
	return nil
}

func (m *MemoryBackend) ZRangeByScore(_ context.Context, key string, min, max float64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key, m.now())
	if !ok || e.zset == nil {
		return []string{}, nil
	}

	type scored struct {
		member string
		score  float64
	}
	matched := make([]scored, 0, len(e.zset))
	for member, score := range e.zset {
		if score >= min && score <= max {
			matched = append(matched, scored{member: member, score: score})
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].score == matched[j].score {
			return matched[i].member < matched[j].member
		}
		return matched[i].score < matched[j].score
	})

	out := make([]string, len(matched))
	for i, s := range matched {
		out[i] = s.member
	}
	return out, nil
}

func (m *MemoryBackend) ZRemRangeByScore(_ context.Context, key string, min, max float64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key, m.now())
	if !ok || e.zset == nil {
		return 0, nil
	}
	var n int64
	for member, score := range e.zset {
		if score >= min && score <= max {
			delete(e.zset, member)
			n++
		}
	}
	if len(e.zset) == 0 {
		delete(m.entries, key)
	}
	return n, nil
}

func (m *MemoryBackend) ZCard(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key, m.now())
	if !ok || e.zset == nil {
		return 0, nil
	}
	return int64(len(e.zset)), nil
}

func (m *MemoryBackend) Ping(context.Context) error { return nil }

// Len returns the number of live entries.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for _, e := range m.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

// Sweep drops every expired entry and returns how many were removed.
func (m *MemoryBackend) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps expired entries every interval until ctx is done. The returned
// channel is closed once the janitor goroutine exits.
func (m *MemoryBackend) StartJanitor(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
	return done
}
