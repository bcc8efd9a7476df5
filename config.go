package goCaptcha

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goCaptcha/token"
)

// Config holds every tunable of the [Engine]. Start from [DefaultConfig] and override.
type Config struct {
	Session      SessionConfig
	Challenge    ChallengeConfig
	Verification VerificationConfig
	RateLimit    RateLimitConfig
	Token        TokenConfig
	Fingerprint  FingerprintConfig
	Storage      StorageConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session keys and lifetime.
type SessionConfig struct {
	KeyPrefix        string
	AttemptKeyPrefix string
	MaxAge           time.Duration
}

// ChallengeConfig bounds math difficulty.
type ChallengeConfig struct {
	DefaultMathDifficulty int
	MaxMathDifficulty     int
}

/*
====================================
VERIFICATION CONFIG
====================================
*/

// VerificationConfig holds attempt, lockout and timing rules.
//
// EnforceServerElapsed additionally caps the client-reported elapsed time by the time
// the server has seen pass since the challenge was issued, so a client cannot claim to
// have taken longer than it did.
type VerificationConfig struct {
	MaxAttempts          int
	LockoutDuration      time.Duration
	MinSolveTimeMath     time.Duration
	MinSolveTime         time.Duration
	SliderTolerance      int
	EnforceServerElapsed bool
}

// RateLimitConfig is the per-IP verification budget.
type RateLimitConfig struct {
	Enabled     bool
	KeyPrefix   string
	MaxRequests int
	Window      time.Duration
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig selects how verification tokens are encoded. Encoding is "plain"
// (unsigned base64url JSON) or "hs256" (HMAC-signed JWT, needs SigningKey).
type TokenConfig struct {
	TTL        time.Duration
	Encoding   string
	SigningKey []byte
	Issuer     string
}

// FingerprintConfig keys the one-way IP hash. An empty salt still hashes, unkeyed.
type FingerprintConfig struct {
	Salt []byte
}

// StorageConfig tunes the backends built by [Builder.Build] when no backend is supplied.
type StorageConfig struct {
	OperationTimeout      time.Duration
	RecoveryProbeInterval time.Duration
	JanitorInterval       time.Duration
}

// AuditConfig controls the async audit queue. BufferSize applies to each lane, and
// DropIfFull only ever drops routine events.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the verify latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults: 5 minute sessions, 3 attempts then a
// 60 second lockout, 50 verifications per IP per 15 minutes, 1 hour plain tokens.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			KeyPrefix:        "cs",
			AttemptKeyPrefix: "csa",
			MaxAge:           5 * time.Minute,
		},
		Challenge: ChallengeConfig{
			DefaultMathDifficulty: 1,
			MaxMathDifficulty:     2,
		},
		Verification: VerificationConfig{
			MaxAttempts:      3,
			LockoutDuration:  60 * time.Second,
			MinSolveTimeMath: time.Second,
			MinSolveTime:     2 * time.Second,
			SliderTolerance:  5,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			KeyPrefix:   "crl",
			MaxRequests: 50,
			Window:      15 * time.Minute,
		},
		Token: TokenConfig{
			TTL:      time.Hour,
			Encoding: token.EncodingPlain,
			Issuer:   "goCaptcha",
		},
		Storage: StorageConfig{
			OperationTimeout:      2 * time.Second,
			RecoveryProbeInterval: 5 * time.Second,
			JanitorInterval:       time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.SigningKey = cloneBytes(cfg.Token.SigningKey)
	out.Fingerprint.Salt = cloneBytes(cfg.Fingerprint.Salt)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Session
	if strings.TrimSpace(c.Session.KeyPrefix) == "" {
		return errors.New("Session KeyPrefix must be set")
	}
	if strings.TrimSpace(c.Session.AttemptKeyPrefix) == "" {
		return errors.New("Session AttemptKeyPrefix must be set")
	}
	if c.Session.KeyPrefix == c.Session.AttemptKeyPrefix {
		return errors.New("Session KeyPrefix and AttemptKeyPrefix must differ")
	}
	if c.Session.MaxAge <= 0 {
		return errors.New("Session MaxAge must be > 0")
	}

	// Challenge
	if c.Challenge.MaxMathDifficulty < 0 {
		return errors.New("Challenge MaxMathDifficulty must be >= 0")
	}
	if c.Challenge.DefaultMathDifficulty < 0 || c.Challenge.DefaultMathDifficulty > c.Challenge.MaxMathDifficulty {
		return errors.New("Challenge DefaultMathDifficulty must be between 0 and MaxMathDifficulty")
	}

	// Verification
	if c.Verification.MaxAttempts <= 0 {
		return errors.New("Verification MaxAttempts must be > 0")
	}
	if c.Verification.LockoutDuration <= 0 {
		return errors.New("Verification LockoutDuration must be > 0")
	}
	if c.Verification.MinSolveTimeMath < 0 || c.Verification.MinSolveTime < 0 {
		return errors.New("Verification minimum solve times must be >= 0")
	}
	if c.Verification.SliderTolerance < 0 {
		return errors.New("Verification SliderTolerance must be >= 0")
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxRequests <= 0 {
			return errors.New("RateLimit MaxRequests must be > 0")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("RateLimit Window must be > 0")
		}
		if strings.TrimSpace(c.RateLimit.KeyPrefix) == "" {
			return errors.New("RateLimit KeyPrefix must be set")
		}
		if c.RateLimit.KeyPrefix == c.Session.KeyPrefix || c.RateLimit.KeyPrefix == c.Session.AttemptKeyPrefix {
			return errors.New("RateLimit KeyPrefix must differ from session prefixes")
		}
	}

	// Token
	if c.Token.TTL <= 0 {
		return errors.New("Token TTL must be > 0")
	}
	switch c.Token.Encoding {
	case token.EncodingPlain:
	case token.EncodingHS256:
		if len(c.Token.SigningKey) < 32 {
			return errors.New("hs256 requires a SigningKey of at least 32 bytes")
		}
	default:
		return errors.New("Token Encoding must be 'plain' or 'hs256'")
	}

	// Storage
	if c.Storage.OperationTimeout <= 0 {
		return errors.New("Storage OperationTimeout must be > 0")
	}
	if c.Storage.RecoveryProbeInterval <= 0 {
		return errors.New("Storage RecoveryProbeInterval must be > 0")
	}
	if c.Storage.JanitorInterval < 0 {
		return errors.New("Storage JanitorInterval must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
