// Package goCaptcha provides a self-hosted, session-based CAPTCHA engine: short-lived
// challenge sessions, four puzzle kinds, answer verification with timing and lockout
// heuristics, per-IP rate limiting and time-bounded verification tokens.
//
// Engine methods are safe to call from multiple goroutines after initialization through
// [Builder.Build]. Verification outcomes are reported as [VerifyResult] values; errors are
// reserved for engine misuse and total storage loss ([ErrStorageUnavailable]).
//
// # Architecture boundaries
//
// goCaptcha is the public surface. It exposes [Engine], [Builder], [Config] and value
// types (VerifyResult, TokenValidation, Stats, MetricsSnapshot). Puzzle generation lives
// in the challenge package, persistence in session and store, token codecs in token. The
// rate limiter and IP fingerprinting live under internal/.
//
// # What this package must NOT do
//
//   - Return a challenge answer, a raw client IP or a stored session to the caller.
//   - Consume an attempt for protocol errors (missing challenge, wrong type, malformed answer).
//   - Perform I/O outside of Engine methods (construction via Builder is allocation-only
//     until Build, except for starting the in-process store janitor).
//   - Import any sub-package that re-imports goCaptcha (no import cycles).
//
// # Client IP
//
// The IP used for rate limiting and fingerprinting is read from the request context
// ([WithClientIP]). Requests without one share the "unknown" bucket.
package goCaptcha
