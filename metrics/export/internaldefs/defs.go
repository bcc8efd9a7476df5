package internaldefs

import (
	goCaptcha "github.com/MrEthical07/goCaptcha"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   goCaptcha.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   goCaptcha.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: goCaptcha.MetricSessionCreated, Name: "gocaptcha_session_created_total", Help: "Created captcha sessions."},
	{ID: goCaptcha.MetricChallengeIssued, Name: "gocaptcha_challenge_issued_total", Help: "Generated challenges."},
	{ID: goCaptcha.MetricVerifySuccess, Name: "gocaptcha_verify_success_total", Help: "Verifications that minted a token."},
	{ID: goCaptcha.MetricVerifyFailure, Name: "gocaptcha_verify_failure_total", Help: "Unsuccessful verifications, all reasons."},
	{ID: goCaptcha.MetricVerifyWrongAnswer, Name: "gocaptcha_verify_wrong_answer_total", Help: "Verifications with an incorrect answer."},
	{ID: goCaptcha.MetricVerifyTooFast, Name: "gocaptcha_verify_too_fast_total", Help: "Verifications below the minimum solve time."},
	{ID: goCaptcha.MetricVerifyExpired, Name: "gocaptcha_verify_expired_total", Help: "Verifications against unknown or expired sessions."},
	{ID: goCaptcha.MetricVerifyProtocol, Name: "gocaptcha_verify_protocol_total", Help: "Verifications rejected as malformed."},
	{ID: goCaptcha.MetricVerifyLocked, Name: "gocaptcha_verify_locked_total", Help: "Verifications against locked sessions."},
	{ID: goCaptcha.MetricLockoutTriggered, Name: "gocaptcha_lockout_triggered_total", Help: "Sessions locked after reaching the attempt cap."},
	{ID: goCaptcha.MetricRateLimited, Name: "gocaptcha_rate_limited_total", Help: "Verifications denied by the per-IP limiter."},
	{ID: goCaptcha.MetricTokenMinted, Name: "gocaptcha_token_minted_total", Help: "Minted verification tokens."},
	{ID: goCaptcha.MetricTokenValid, Name: "gocaptcha_token_valid_total", Help: "Token validations that succeeded."},
	{ID: goCaptcha.MetricTokenInvalid, Name: "gocaptcha_token_invalid_total", Help: "Token validations that failed."},
	{ID: goCaptcha.MetricTokenIPMismatch, Name: "gocaptcha_token_ip_mismatch_total", Help: "Valid tokens presented from a different IP."},
	{ID: goCaptcha.MetricStorageUnavailable, Name: "gocaptcha_storage_unavailable_total", Help: "Calls that failed on both stores."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goCaptcha.MetricVerifyLatency, Name: "gocaptcha_verify_latency_seconds", Help: "Verify latency histogram."},
}

const (
	AuditDroppedName = "gocaptcha_audit_dropped_total"
	AuditDroppedHelp = "Routine audit events dropped on a full audit queue."
	DegradedName     = "gocaptcha_storage_degraded"
	DegradedHelp     = "1 while storage runs on the in-process fallback."
)

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters without native
// histogram support.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
