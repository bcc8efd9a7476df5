package goCaptcha

import "errors"

var (
	// ErrEngineNotReady is returned when an Engine method is called on a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("captcha engine not initialized")
	// ErrStorageUnavailable is returned only when neither the primary nor the fallback store answered.
	ErrStorageUnavailable = errors.New("captcha storage unavailable")
	// ErrSessionExpired is returned by GenerateChallenge for unknown or expired sessions.
	ErrSessionExpired = errors.New("invalid or expired session")
	// ErrInvalidCaptchaType is returned for kinds outside math, image, slider and pattern.
	ErrInvalidCaptchaType = errors.New("invalid captcha type")
	// ErrChallengeAlreadyIssued is returned when a session already holds a challenge.
	ErrChallengeAlreadyIssued = errors.New("challenge already issued for session")
	// ErrChallengeGeneration wraps randomness failures while building a challenge.
	ErrChallengeGeneration = errors.New("challenge generation failed")
	// ErrTokenMint wraps token codec failures after a successful verification.
	ErrTokenMint = errors.New("verification token mint failed")
)

const (
	msgInvalidSession   = "Invalid or expired session"
	msgRateLimited      = "Too many verification attempts. Please try again later"
	msgNoChallenge      = "No challenge has been issued for this session"
	msgTypeMismatch     = "Captcha type does not match the issued challenge"
	msgMalformedAnswer  = "Answer is missing or malformed"
	msgInvalidElapsed   = "Elapsed time is missing or invalid"
	msgLocked           = "Too many failed attempts. Please wait before trying again"
	msgTooFast          = "Answer submitted too quickly"
	msgWrongAnswer      = "Incorrect answer"
	msgLockoutTriggered = "Too many failed attempts. Session locked"
	msgTokenMissing     = "Verification token required"
)
