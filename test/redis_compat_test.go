//go:build integration
// +build integration

package test

import (
	"testing"
	"time"

	goCaptcha "github.com/MrEthical07/goCaptcha"
	"github.com/MrEthical07/goCaptcha/challenge"
)

func TestRedisOutageFailsOverAndRecovers(t *testing.T) {
	env := newIntegrationEnv(t, func(cfg *goCaptcha.Config) {
		cfg.Storage.RecoveryProbeInterval = 20 * time.Millisecond
		cfg.Storage.OperationTimeout = 200 * time.Millisecond
	})
	ctx := clientCtx("192.0.2.44")

	env.mr.Close()

	ticket, err := env.engine.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession during outage must fall back, got %v", err)
	}
	if !env.engine.Degraded() {
		t.Fatalf("engine must report degraded after a redis fault")
	}
	if _, err := env.engine.GenerateChallenge(ctx, ticket.SessionToken, challenge.KindSlider, goCaptcha.ChallengeOptions{}); err != nil {
		t.Fatalf("GenerateChallenge during outage failed: %v", err)
	}

	if err := env.mr.Restart(); err != nil {
		t.Fatalf("miniredis restart failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	var recovered string
	for time.Now().Before(deadline) {
		time.Sleep(25 * time.Millisecond)
		tk, err := env.engine.CreateSession(ctx)
		if err != nil {
			t.Fatalf("CreateSession after restart failed: %v", err)
		}
		if !env.engine.Degraded() {
			recovered = tk.SessionToken
			break
		}
	}
	if recovered == "" {
		t.Fatalf("engine did not leave degraded mode after redis came back")
	}
	if !env.mr.Exists("cs:" + recovered) {
		t.Fatalf("sessions created after recovery must land in redis")
	}

	// Stores are never merged: the session created during the outage is gone.
	res, err := env.engine.Verify(ctx, goCaptcha.VerifyRequest{
		SessionToken:   ticket.SessionToken,
		CaptchaType:    challenge.KindSlider,
		Answer:         challenge.PositionAnswer(50),
		ElapsedSeconds: 3,
	})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if res.Reason != goCaptcha.ReasonExpired {
		t.Fatalf("expected expired for outage-era session, got %+v", res)
	}
}

func TestRedisStatsReportBackend(t *testing.T) {
	env := newIntegrationEnv(t, nil)
	ctx := clientCtx("192.0.2.45")

	for i := 0; i < 3; i++ {
		if _, err := env.engine.CreateSession(ctx); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}
	if _, err := env.engine.Verify(ctx, goCaptcha.VerifyRequest{SessionToken: "missing"}); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	stats, err := env.engine.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Backend != "failover(redis,memory)" {
		t.Fatalf("unexpected backend %q", stats.Backend)
	}
	if stats.ActiveSessions != 3 {
		t.Fatalf("expected 3 active sessions, got %d", stats.ActiveSessions)
	}
	if stats.RateLimitEntries != 1 {
		t.Fatalf("expected 1 rate limit entry, got %d", stats.RateLimitEntries)
	}
	if stats.Degraded {
		t.Fatalf("stats must not report degraded")
	}
}
