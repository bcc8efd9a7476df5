package goCaptcha

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/goCaptcha/internal/rate"
	"github.com/MrEthical07/goCaptcha/session"
	"github.com/MrEthical07/goCaptcha/store"
	"github.com/MrEthical07/goCaptcha/token"
)

// Builder assembles an [Engine]. A Builder can be used once.
type Builder struct {
	config  Config
	redis   redis.UniversalClient
	backend store.Backend

	logger    *zap.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis uses client as the primary store, falling back to memory when it fails.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithBackend supplies a fully built backend, overriding WithRedis.
func (b *Builder) WithBackend(backend store.Backend) *Builder {
	b.backend = backend
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides time.Now for sessions, lockouts, rate windows and tokens.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
//
// Without WithBackend the storage is chosen as follows: with a Redis client, a
// failover pair of Redis and an in-process store; without one, the in-process store
// alone. When Build creates an in-process store it also starts its expiry janitor,
// which [Engine.Close] stops.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	engine := &Engine{
		config: cfg,
		logger: logger,
		now:    now,
	}

	// -------- STORAGE --------
	backend := b.backend
	if backend == nil {
		memory := store.NewMemoryBackend(store.WithMemoryClock(now))
		backend = memory
		if b.redis != nil {
			backend = store.NewFailoverBackend(
				store.NewRedisBackend(b.redis, cfg.Storage.OperationTimeout),
				memory,
				store.WithFailoverLogger(logger.Named("store")),
				store.WithProbeInterval(cfg.Storage.RecoveryProbeInterval),
			)
		}
		if cfg.Storage.JanitorInterval > 0 {
			ctx, cancel := context.WithCancel(context.Background())
			engine.stopJanitor = cancel
			engine.janitorDone = memory.StartJanitor(ctx, cfg.Storage.JanitorInterval)
		}
	}
	engine.backend = backend

	// -------- SESSION STORE --------
	engine.sessions = session.NewStore(
		backend,
		cfg.Session.KeyPrefix,
		cfg.Session.AttemptKeyPrefix,
		cfg.Session.MaxAge,
		now,
	)

	// -------- RATE LIMITER --------
	if cfg.RateLimit.Enabled {
		engine.limiter = rate.New(backend, rate.Config{
			Prefix: cfg.RateLimit.KeyPrefix,
			Limit:  cfg.RateLimit.MaxRequests,
			Window: cfg.RateLimit.Window,
		}, now)
	}

	// -------- TOKENS --------
	tokens, err := token.NewService(token.Config{
		TTL:        cfg.Token.TTL,
		Encoding:   cfg.Token.Encoding,
		SigningKey: cloneBytes(cfg.Token.SigningKey),
		Issuer:     cfg.Token.Issuer,
	}, logger.Named("token"), now)
	if err != nil {
		engine.Close()
		return nil, err
	}
	engine.tokens = tokens

	engine.audit = newAuditQueue(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
