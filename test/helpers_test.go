//go:build integration
// +build integration

package test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goCaptcha "github.com/MrEthical07/goCaptcha"
	"github.com/MrEthical07/goCaptcha/challenge"
	"github.com/MrEthical07/goCaptcha/session"
	"github.com/MrEthical07/goCaptcha/store"
)

type integrationEnv struct {
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	engine   *goCaptcha.Engine
	sessions *session.Store
}

// newIntegrationEnv builds an engine on miniredis plus a second session store reading
// the same keys, so tests can look up issued answers.
func newIntegrationEnv(t *testing.T, mutate func(*goCaptcha.Config)) *integrationEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         mr.Addr(),
		MaxRetries:   -1,
		DialTimeout:  200 * time.Millisecond,
		ReadTimeout:  200 * time.Millisecond,
		WriteTimeout: 200 * time.Millisecond,
	})

	cfg := goCaptcha.DefaultConfig()
	cfg.Storage.JanitorInterval = 0
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := goCaptcha.New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	sessions := session.NewStore(
		store.NewRedisBackend(rdb, time.Second),
		cfg.Session.KeyPrefix,
		cfg.Session.AttemptKeyPrefix,
		cfg.Session.MaxAge,
		time.Now,
	)

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return &integrationEnv{mr: mr, rdb: rdb, engine: engine, sessions: sessions}
}

// issue creates a session with a challenge of kind and returns its token and answer.
func (env *integrationEnv) issue(t *testing.T, ctx context.Context, kind challenge.Kind) (string, challenge.Submission) {
	t.Helper()

	ticket, err := env.engine.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := env.engine.GenerateChallenge(ctx, ticket.SessionToken, kind, goCaptcha.ChallengeOptions{}); err != nil {
		t.Fatalf("GenerateChallenge(%s) failed: %v", kind, err)
	}

	sess, err := env.sessions.Get(ctx, ticket.SessionToken)
	if err != nil {
		t.Fatalf("session Get failed: %v", err)
	}
	if sess.CaptchaType != kind {
		t.Fatalf("expected stored kind %s, got %s", kind, sess.CaptchaType)
	}

	switch kind {
	case challenge.KindMath:
		return ticket.SessionToken, challenge.TextAnswer(sess.Answer.Text)
	case challenge.KindSlider:
		return ticket.SessionToken, challenge.PositionAnswer(sess.Answer.Value)
	default:
		return ticket.SessionToken, challenge.IndexAnswer(sess.Answer.Indices...)
	}
}

func clientCtx(ip string) context.Context {
	return goCaptcha.WithClientIP(context.Background(), ip)
}
