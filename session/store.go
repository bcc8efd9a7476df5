package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goCaptcha/internal"
	"github.com/MrEthical07/goCaptcha/store"
)

var (
	// ErrNotFound is returned for unknown, malformed, or already-deleted tokens.
	ErrNotFound = errors.New("session not found")
	// ErrExpired is returned when a stored session is older than the max age.
	ErrExpired = errors.New("session expired")
	// ErrStoreUnavailable wraps backend failures.
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// Store persists sessions in a [store.Backend].
type Store struct {
	backend       store.Backend
	prefix        string
	attemptPrefix string
	maxAge        time.Duration
	now           func() time.Time
}

// NewStore creates a session [Store]. prefix and attemptPrefix set the key namespaces
// for blobs and attempt counters; maxAge bounds a session's lifetime from creation.
func NewStore(backend store.Backend, prefix, attemptPrefix string, maxAge time.Duration, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		backend:       backend,
		prefix:        prefix,
		attemptPrefix: attemptPrefix,
		maxAge:        maxAge,
		now:           now,
	}
}

func (s *Store) key(token string) string {
	return s.prefix + ":" + token
}

func (s *Store) attemptKey(token string) string {
	return s.attemptPrefix + ":" + token
}

// MaxAge returns the configured session lifetime.
func (s *Store) MaxAge() time.Duration {
	return s.maxAge
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// Create persists a fresh, unchallenged session bound to ipFingerprint.
func (s *Store) Create(ctx context.Context, ipFingerprint [32]byte) (*Session, error) {
	token, err := internal.NewSessionToken()
	if err != nil {
		return nil, err
	}
	sess := &Session{
		Token:         token,
		CreatedAt:     s.now(),
		IPFingerprint: ipFingerprint,
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get loads a session and its attempt counter. Sessions past max age are deleted and
// reported as [ErrExpired]; undecodable blobs are deleted and reported as [ErrNotFound].
func (s *Store) Get(ctx context.Context, token string) (*Session, error) {
	if !internal.ValidSessionToken(token) {
		return nil, ErrNotFound
	}

	data, err := s.backend.Get(ctx, s.key(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err)
	}

	sess, err := Decode(data)
	if err != nil {
		if _, derr := s.Delete(ctx, token); derr != nil {
			return nil, derr
		}
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	sess.Token = token

	if sess.Age(s.now()) >= s.maxAge {
		if _, err := s.Delete(ctx, token); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}

	attempts, err := s.attempts(ctx, token)
	if err != nil {
		return nil, err
	}
	sess.Attempts = attempts
	return sess, nil
}

// Update merges patch into the stored session and re-persists it with a refreshed TTL.
// The max-age check in [Store.Get] still bounds the session from its creation time.
func (s *Store) Update(ctx context.Context, token string, patch Patch) (*Session, error) {
	sess, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	patch.apply(sess)
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Delete removes the session and its attempt counter. existed reports whether the
// session blob was present, so concurrent callers can tell who deleted it first.
func (s *Store) Delete(ctx context.Context, token string) (existed bool, err error) {
	n, err := s.backend.Delete(ctx, s.key(token))
	if err != nil {
		return false, unavailable(err)
	}
	if _, err := s.backend.Delete(ctx, s.attemptKey(token)); err != nil {
		return n > 0, unavailable(err)
	}
	return n > 0, nil
}

// IncrementAttempts atomically adds one failed attempt and returns the new count.
func (s *Store) IncrementAttempts(ctx context.Context, token string) (int, error) {
	key := s.attemptKey(token)
	n, err := s.backend.Increment(ctx, key)
	if err != nil {
		return 0, unavailable(err)
	}
	if n == 1 {
		if err := s.backend.Expire(ctx, key, s.maxAge); err != nil {
			return 0, unavailable(err)
		}
	}
	return int(n), nil
}

// ResetAttempts clears the failed-attempt counter.
func (s *Store) ResetAttempts(ctx context.Context, token string) error {
	if _, err := s.backend.Delete(ctx, s.attemptKey(token)); err != nil {
		return unavailable(err)
	}
	return nil
}

// Count returns the number of stored sessions. Best effort: expired sessions that the
// backend has not evicted yet may be included.
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.backend.CountPrefix(ctx, s.prefix+":")
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

func (s *Store) save(ctx context.Context, sess *Session) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}
	if err := s.backend.Set(ctx, s.key(sess.Token), data, s.maxAge); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) attempts(ctx context.Context, token string) (int, error) {
	raw, err := s.backend.Get(ctx, s.attemptKey(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, unavailable(err)
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil || n < 0 {
		return 0, nil
	}
	return n, nil
}
