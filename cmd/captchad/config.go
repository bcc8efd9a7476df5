package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	goCaptcha "github.com/MrEthical07/goCaptcha"
)

const envPrefix = "CAPTCHAD"

type serverConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type logConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type redisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Embedded bool   `mapstructure:"embedded"`
}

type captchaConfig struct {
	SessionMaxAge        time.Duration `mapstructure:"session_max_age"`
	MaxAttempts          int           `mapstructure:"max_attempts"`
	Lockout              time.Duration `mapstructure:"lockout"`
	MinSolveMath         time.Duration `mapstructure:"min_solve_math"`
	MinSolve             time.Duration `mapstructure:"min_solve"`
	SliderTolerance      int           `mapstructure:"slider_tolerance"`
	EnforceServerElapsed bool          `mapstructure:"enforce_server_elapsed"`
	DefaultDifficulty    int           `mapstructure:"default_difficulty"`
	MaxDifficulty        int           `mapstructure:"max_difficulty"`
}

type rateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

type tokenConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	Encoding   string        `mapstructure:"encoding"`
	SigningKey string        `mapstructure:"signing_key"`
	Issuer     string        `mapstructure:"issuer"`
}

type auditConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Buffer  int  `mapstructure:"buffer"`
}

type metricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Exporter string `mapstructure:"exporter"`
	Path     string `mapstructure:"path"`
}

// appConfig is the full service configuration. Every key can be set in the config file
// or as CAPTCHAD_<SECTION>_<KEY>, e.g. CAPTCHAD_REDIS_ADDR.
type appConfig struct {
	Server          serverConfig    `mapstructure:"server"`
	Log             logConfig       `mapstructure:"log"`
	Redis           redisConfig     `mapstructure:"redis"`
	Captcha         captchaConfig   `mapstructure:"captcha"`
	RateLimit       rateLimitConfig `mapstructure:"ratelimit"`
	Token           tokenConfig     `mapstructure:"token"`
	FingerprintSalt string          `mapstructure:"fingerprint_salt"`
	Audit           auditConfig     `mapstructure:"audit"`
	Metrics         metricsConfig   `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	d := goCaptcha.DefaultConfig()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.embedded", false)

	v.SetDefault("captcha.session_max_age", d.Session.MaxAge)
	v.SetDefault("captcha.max_attempts", d.Verification.MaxAttempts)
	v.SetDefault("captcha.lockout", d.Verification.LockoutDuration)
	v.SetDefault("captcha.min_solve_math", d.Verification.MinSolveTimeMath)
	v.SetDefault("captcha.min_solve", d.Verification.MinSolveTime)
	v.SetDefault("captcha.slider_tolerance", d.Verification.SliderTolerance)
	v.SetDefault("captcha.enforce_server_elapsed", d.Verification.EnforceServerElapsed)
	v.SetDefault("captcha.default_difficulty", d.Challenge.DefaultMathDifficulty)
	v.SetDefault("captcha.max_difficulty", d.Challenge.MaxMathDifficulty)

	v.SetDefault("ratelimit.enabled", d.RateLimit.Enabled)
	v.SetDefault("ratelimit.max_requests", d.RateLimit.MaxRequests)
	v.SetDefault("ratelimit.window", d.RateLimit.Window)

	v.SetDefault("token.ttl", d.Token.TTL)
	v.SetDefault("token.encoding", d.Token.Encoding)
	v.SetDefault("token.signing_key", "")
	v.SetDefault("token.issuer", d.Token.Issuer)

	v.SetDefault("fingerprint_salt", "")

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.buffer", d.Audit.BufferSize)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.exporter", "prometheus")
	v.SetDefault("metrics.path", "/metrics")
}

// loadConfig reads .env files, then the optional config file, then CAPTCHAD_* env vars.
// A missing default .env is not an error; a missing explicit file is.
func loadConfig(path string, envFiles []string) (appConfig, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return appConfig{}, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return appConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg appConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return appConfig{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			return godotenv.Load(".env")
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// engineConfig maps the service configuration onto the engine configuration.
func (c appConfig) engineConfig() (goCaptcha.Config, error) {
	cfg := goCaptcha.DefaultConfig()

	cfg.Session.MaxAge = c.Captcha.SessionMaxAge
	cfg.Challenge.DefaultMathDifficulty = c.Captcha.DefaultDifficulty
	cfg.Challenge.MaxMathDifficulty = c.Captcha.MaxDifficulty

	cfg.Verification.MaxAttempts = c.Captcha.MaxAttempts
	cfg.Verification.LockoutDuration = c.Captcha.Lockout
	cfg.Verification.MinSolveTimeMath = c.Captcha.MinSolveMath
	cfg.Verification.MinSolveTime = c.Captcha.MinSolve
	cfg.Verification.SliderTolerance = c.Captcha.SliderTolerance
	cfg.Verification.EnforceServerElapsed = c.Captcha.EnforceServerElapsed

	cfg.RateLimit.Enabled = c.RateLimit.Enabled
	cfg.RateLimit.MaxRequests = c.RateLimit.MaxRequests
	cfg.RateLimit.Window = c.RateLimit.Window

	cfg.Token.TTL = c.Token.TTL
	cfg.Token.Encoding = c.Token.Encoding
	cfg.Token.SigningKey = []byte(c.Token.SigningKey)
	cfg.Token.Issuer = c.Token.Issuer

	cfg.Fingerprint.Salt = []byte(c.FingerprintSalt)

	cfg.Audit.Enabled = c.Audit.Enabled
	cfg.Audit.BufferSize = c.Audit.Buffer

	cfg.Metrics.Enabled = c.Metrics.Enabled

	if err := cfg.Validate(); err != nil {
		return goCaptcha.Config{}, err
	}
	return cfg, nil
}

func (c appConfig) validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must be set")
	}
	switch c.Metrics.Exporter {
	case "prometheus", "otel":
	default:
		return fmt.Errorf("metrics.exporter must be prometheus or otel, got %q", c.Metrics.Exporter)
	}
	if c.Redis.Embedded && c.Redis.Addr != "" {
		return errors.New("redis.embedded and redis.addr are mutually exclusive")
	}
	return nil
}
