package goCaptcha

import (
	"time"

	"github.com/MrEthical07/goCaptcha/challenge"
)

// FailureReason classifies an unsuccessful verification.
type FailureReason string

const (
	ReasonNone        FailureReason = ""
	ReasonProtocol    FailureReason = "protocol"
	ReasonExpired     FailureReason = "expired"
	ReasonRateLimited FailureReason = "rate_limited"
	ReasonLocked      FailureReason = "locked"
	ReasonWrongAnswer FailureReason = "wrong_answer"
	ReasonTooFast     FailureReason = "too_fast"
)

// CountsAttempt reports whether the reason consumed one of the session's attempts.
func (r FailureReason) CountsAttempt() bool {
	return r == ReasonWrongAnswer || r == ReasonTooFast
}

// SessionTicket is returned by [Engine.CreateSession].
type SessionTicket struct {
	SessionToken     string `json:"sessionToken"`
	ExpiresInSeconds int    `json:"expiresIn"`
}

// ChallengeOptions tune [Engine.GenerateChallenge]. A nil Difficulty selects
// Config.Challenge.DefaultMathDifficulty; larger values are clamped to the configured max.
type ChallengeOptions struct {
	Difficulty *int
}

// WithDifficulty returns options requesting math difficulty d.
func WithDifficulty(d int) ChallengeOptions {
	return ChallengeOptions{Difficulty: &d}
}

// VerifyOptions are per-request overrides. A SliderTolerance <= 0 selects
// Config.Verification.SliderTolerance.
type VerifyOptions struct {
	SliderTolerance int
}

// VerifyRequest is one answer submission.
type VerifyRequest struct {
	SessionToken   string
	CaptchaType    challenge.Kind
	Answer         challenge.Submission
	ElapsedSeconds float64
	Options        VerifyOptions
}

// VerifyResult is the structured outcome of [Engine.Verify]. On success Token and
// Timestamp are set; on failure Reason and Error describe why.
type VerifyResult struct {
	Verified  bool      `json:"verified"`
	Token     string    `json:"token,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`

	Reason FailureReason `json:"reason,omitempty"`
	Error  string        `json:"error,omitempty"`

	Attempts          int           `json:"attempts,omitempty"`
	MaxAttempts       int           `json:"maxAttempts,omitempty"`
	RemainingAttempts int           `json:"remainingAttempts,omitempty"`
	Locked            bool          `json:"locked,omitempty"`
	LockRemaining     time.Duration `json:"-"`
	RetryAfter        time.Duration `json:"-"`
}

// TokenValidation is the outcome of [Engine.ValidateToken].
type TokenValidation struct {
	Valid        bool      `json:"valid"`
	SessionToken string    `json:"sessionToken,omitempty"`
	MintedAt     time.Time `json:"mintedAt,omitzero"`
	IPMismatch   bool      `json:"ipMismatch,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// Stats is an operational snapshot. Counts are best effort.
type Stats struct {
	ActiveSessions   int64  `json:"activeSessions"`
	RateLimitEntries int64  `json:"rateLimitEntries"`
	Backend          string `json:"backend"`
	Degraded         bool   `json:"degraded"`

	SessionMaxAgeSeconds   int    `json:"sessionMaxAgeSeconds"`
	MaxAttempts            int    `json:"maxAttempts"`
	LockoutSeconds         int    `json:"lockoutSeconds"`
	RateLimitEnabled       bool   `json:"rateLimitEnabled"`
	RateLimitMaxRequests   int    `json:"rateLimitMaxRequests"`
	RateLimitWindowSeconds int    `json:"rateLimitWindowSeconds"`
	TokenTTLSeconds        int    `json:"tokenTtlSeconds"`
	TokenEncoding          string `json:"tokenEncoding"`
}
