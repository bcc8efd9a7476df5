package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	goCaptcha "github.com/MrEthical07/goCaptcha"
	"github.com/MrEthical07/goCaptcha/challenge"
)

func main() {
	var (
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "flows per phase")
		qps         = flag.Float64("rate", 0, "max flows per second per phase; 0 is unlimited")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		encoding    = flag.String("token-encoding", "plain", "token encoding (plain, hs256)")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 || *qps < 0 {
		fmt.Fprintln(os.Stderr, "concurrency and ops must be > 0, rate must be >= 0")
		os.Exit(2)
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := goCaptcha.DefaultConfig()
	cfg.Token.Encoding = *encoding
	if *encoding == "hs256" {
		cfg.Token.SigningKey = []byte("loadtest-signing-key-0123456789abcdef")
	}
	engine, err := goCaptcha.New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx := context.Background()

	solveStats, err := runPhase(ctx, *ops, *concurrency, *qps, func(ctx context.Context, i int) error {
		return solveFlow(ctx, engine, i)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "solve phase: %v\n", err)
		os.Exit(1)
	}
	wrongStats, err := runPhase(ctx, *ops, *concurrency, *qps, func(ctx context.Context, i int) error {
		return wrongFlow(ctx, engine, i)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "wrong-answer phase: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("---- results ----")
	printStats("solve", solveStats)
	printStats("wrong", wrongStats)
	if engine.Degraded() {
		fmt.Println("warning: engine finished in degraded (in-memory) mode")
	}
}

var errUnexpected = errors.New("unexpected verify outcome")

// clientIP spreads flows over distinct addresses so the per-IP limiter stays out of the way.
func clientIP(i int) string {
	return fmt.Sprintf("10.%d.%d.%d", (i>>16)&0xff, (i>>8)&0xff, i&0xff)
}

// solveFlow runs create, challenge, verify and token validation for one client.
func solveFlow(ctx context.Context, engine *goCaptcha.Engine, i int) error {
	ctx = goCaptcha.WithClientIP(ctx, clientIP(i))

	ticket, err := engine.CreateSession(ctx)
	if err != nil {
		return err
	}
	c, err := engine.GenerateChallenge(ctx, ticket.SessionToken, challenge.KindMath, goCaptcha.ChallengeOptions{})
	if err != nil {
		return err
	}
	answer, err := solveMath(c.Math.Question)
	if err != nil {
		return err
	}

	res, err := engine.Verify(ctx, goCaptcha.VerifyRequest{
		SessionToken:   ticket.SessionToken,
		CaptchaType:    challenge.KindMath,
		Answer:         challenge.TextAnswer(answer),
		ElapsedSeconds: 2.5,
	})
	if err != nil {
		return err
	}
	if !res.Verified {
		return fmt.Errorf("%w: %s", errUnexpected, res.Reason)
	}

	v, err := engine.ValidateToken(ctx, res.Token)
	if err != nil {
		return err
	}
	if !v.Valid {
		return fmt.Errorf("%w: minted token rejected: %s", errUnexpected, v.Error)
	}
	return nil
}

// wrongFlow exhausts a session's attempts with wrong answers until it locks.
func wrongFlow(ctx context.Context, engine *goCaptcha.Engine, i int) error {
	ctx = goCaptcha.WithClientIP(ctx, clientIP(i))

	ticket, err := engine.CreateSession(ctx)
	if err != nil {
		return err
	}
	if _, err := engine.GenerateChallenge(ctx, ticket.SessionToken, challenge.KindMath, goCaptcha.ChallengeOptions{}); err != nil {
		return err
	}

	for attempt := 0; attempt < engine.Config().Verification.MaxAttempts; attempt++ {
		res, err := engine.Verify(ctx, goCaptcha.VerifyRequest{
			SessionToken:   ticket.SessionToken,
			CaptchaType:    challenge.KindMath,
			Answer:         challenge.TextAnswer("-1"),
			ElapsedSeconds: 2.5,
		})
		if err != nil {
			return err
		}
		if res.Reason != goCaptcha.ReasonWrongAnswer {
			return fmt.Errorf("%w: %s", errUnexpected, res.Reason)
		}
		if res.Locked {
			return nil
		}
	}
	return fmt.Errorf("%w: session never locked", errUnexpected)
}

func runPhase(ctx context.Context, ops, concurrency int, qps float64, flow func(context.Context, int) error) (phaseStats, error) {
	var (
		cursor    int64
		failures  int64
		firstErr  error
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if qps > 0 {
		limiter = rate.NewLimiter(rate.Limit(qps), 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := 0; w < concurrency; w++ {
		g.Go(func() error {
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return nil
				}
				if err := limiter.Wait(gctx); err != nil {
					return err
				}
				t0 := time.Now()
				err := flow(gctx, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				if err != nil && firstErr == nil {
					firstErr = err
				}
				latencies = append(latencies, d)
				mu.Unlock()
			}
		})
	}
	if err := g.Wait(); err != nil {
		return phaseStats{}, err
	}
	total := time.Since(start)

	s := computeStats(total, latencies, failures)
	s.firstErr = firstErr
	return s, nil
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	firstErr error
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: flows=%d failures=%d total=%s flows/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
	if s.firstErr != nil {
		fmt.Printf("%s: first failure: %v\n", name, s.firstErr)
	}
}
