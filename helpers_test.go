package goCaptcha

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goCaptcha/challenge"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:        mr.Addr(),
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
		ReadTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Storage.JanitorInterval = 0
	return cfg
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *testClock) {
	t.Helper()

	clock := newTestClock()
	engine, err := New().
		WithConfig(cfg).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, clock
}

func testCtx(ip string) context.Context {
	return WithClientIP(context.Background(), ip)
}

// issue creates a session, generates a challenge of kind and returns the token with
// the stored answer.
func issue(t *testing.T, engine *Engine, ctx context.Context, kind challenge.Kind, opts ChallengeOptions) (string, challenge.Answer) {
	t.Helper()

	ticket, err := engine.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := engine.GenerateChallenge(ctx, ticket.SessionToken, kind, opts); err != nil {
		t.Fatalf("GenerateChallenge failed: %v", err)
	}
	sess, err := engine.sessions.Get(ctx, ticket.SessionToken)
	if err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	return ticket.SessionToken, sess.Answer
}

func correctSubmission(kind challenge.Kind, answer challenge.Answer) challenge.Submission {
	switch kind {
	case challenge.KindMath:
		return challenge.TextAnswer(answer.Text)
	case challenge.KindSlider:
		return challenge.PositionAnswer(answer.Value)
	default:
		return challenge.IndexAnswer(answer.Indices...)
	}
}

func reversed(in []int) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

func missingIndex(answer []int) int {
	for i := 0; i < 9; i++ {
		found := false
		for _, v := range answer {
			if v == i {
				found = true
				break
			}
		}
		if !found {
			return i
		}
	}
	return -1
}

func mustVerify(t *testing.T, engine *Engine, ctx context.Context, req VerifyRequest) *VerifyResult {
	t.Helper()

	res, err := engine.Verify(ctx, req)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	return res
}
