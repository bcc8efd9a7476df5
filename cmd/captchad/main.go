// Command captchad serves the captcha engine over HTTP.
//
// Usage:
//
//	captchad serve --config captchad.yaml
//	captchad serve --embedded-redis
//	captchad check --config captchad.yaml
//	captchad version
//
// Every config key can also be set through the environment as CAPTCHAD_<SECTION>_<KEY>,
// for example CAPTCHAD_REDIS_ADDR or CAPTCHAD_TOKEN_ENCODING. A .env file in the working
// directory is loaded first when present.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	goCaptcha "github.com/MrEthical07/goCaptcha"
)

// CLI defines the command-line interface.
type CLI struct {
	Serve   ServeCmd   `cmd:"" help:"Start the captcha HTTP server."`
	Check   CheckCmd   `cmd:"" help:"Validate configuration and exit."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	Config    string   `short:"c" help:"Path to config file (yaml, json or toml)." type:"path"`
	EnvFile   []string `name:"env-file" help:"Env files to load before reading config."`
	LogLevel  string   `help:"Log level override (debug, info, warn, error)."`
	LogFormat string   `help:"Log format override (json, console)."`
}

func (cli *CLI) load() (appConfig, error) {
	cfg, err := loadConfig(cli.Config, cli.EnvFile)
	if err != nil {
		return appConfig{}, err
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Log.Format = cli.LogFormat
	}
	return cfg, nil
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("captchad version %s\n", version)
	return nil
}

// CheckCmd loads and validates the configuration.
type CheckCmd struct{}

func (c *CheckCmd) Run(cli *CLI) error {
	cfg, err := cli.load()
	if err != nil {
		return err
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	if _, err := cfg.engineConfig(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	fmt.Println("configuration ok")
	return nil
}

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Addr          string `help:"Listen address, overrides server.addr."`
	RedisAddr     string `name:"redis-addr" help:"Redis address, overrides redis.addr."`
	EmbeddedRedis bool   `name:"embedded-redis" help:"Run an in-process Redis (for local use only)."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := cli.load()
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}
	if c.RedisAddr != "" {
		cfg.Redis.Addr = c.RedisAddr
	}
	if c.EmbeddedRedis {
		cfg.Redis.Embedded = true
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

func serve(ctx context.Context, cfg appConfig, logger *zap.Logger) error {
	engineCfg, err := cfg.engineConfig()
	if err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	builder := goCaptcha.New().
		WithConfig(engineCfg).
		WithLogger(logger.Named("captcha"))
	if engineCfg.Audit.Enabled {
		builder = builder.WithAuditSink(goCaptcha.NewJSONWriterSink(os.Stdout))
	}

	client, cleanup, err := redisClient(cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer cleanup()
	if client != nil {
		builder = builder.WithRedis(client)
	} else {
		logger.Warn("no redis configured, sessions are kept in process memory only")
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	s := &server{engine: engine, logger: logger.Named("http")}
	if cfg.Metrics.Enabled {
		endpoint, err := newMetricsEndpoint(cfg.Metrics.Exporter, engine)
		if err != nil {
			return err
		}
		defer func() { _ = endpoint.shutdown(context.Background()) }()
		s.metrics = endpoint.handler
		s.path = cfg.Metrics.Path
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      newRouter(s),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("captchad listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("token_encoding", engineCfg.Token.Encoding))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// redisClient returns nil when no Redis is configured.
func redisClient(cfg redisConfig, logger *zap.Logger) (redis.UniversalClient, func(), error) {
	switch {
	case cfg.Embedded:
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded redis: %w", err)
		}
		logger.Info("embedded redis started", zap.String("addr", mr.Addr()))
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil

	case cfg.Addr != "":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		return client, func() { _ = client.Close() }, nil
	}
	return nil, func() {}, nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("captchad"),
		kong.Description("Self-hosted captcha service"),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
