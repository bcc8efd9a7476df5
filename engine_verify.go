package goCaptcha

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/goCaptcha/challenge"
	"github.com/MrEthical07/goCaptcha/internal"
	"github.com/MrEthical07/goCaptcha/session"
)

// Verify checks one answer submission. Outcomes are reported in the returned
// [VerifyResult]; an error is returned only for a nil engine or when storage is
// entirely unavailable.
//
// Checks run in a fixed order: per-IP rate limit, session lookup, protocol shape,
// lockout, minimum solve time, answer comparison. A correct answer deletes the session
// and mints a token; the first concurrent success wins and later ones see an expired
// session. A wrong or too-fast answer consumes an attempt and locks the session when
// the attempt cap is reached.
func (e *Engine) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricVerifyLatency, time.Since(start))
		}
	}()

	res, err := e.verify(ctx, req)
	if err != nil {
		e.emitAudit(ctx, auditEventStorageFailure, false, req.SessionToken, req.CaptchaType, ReasonNone, err, nil)
		return nil, err
	}

	if res.Verified {
		e.metricInc(MetricVerifySuccess)
		e.emitAudit(ctx, auditEventVerifySuccess, true, req.SessionToken, req.CaptchaType, ReasonNone, nil, nil)
		return res, nil
	}

	e.metricInc(MetricVerifyFailure)
	if id, ok := reasonMetric(res.Reason); ok {
		e.metricInc(id)
	}
	switch res.Reason {
	case ReasonRateLimited:
		e.emitAudit(ctx, auditEventRateLimited, false, req.SessionToken, req.CaptchaType, res.Reason, nil,
			durationMetadata("retry_after", res.RetryAfter))
	default:
		e.emitAudit(ctx, auditEventVerifyFailure, false, req.SessionToken, req.CaptchaType, res.Reason, nil, nil)
	}
	return res, nil
}

func (e *Engine) verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	now := e.now()

	// 1. Per-IP budget. Counts every submission, well-formed or not.
	if e.limiter != nil {
		rl, err := e.limiter.Check(ctx, clientIPFromContext(ctx))
		if err != nil {
			return nil, e.storageError("rate_limit", err)
		}
		if !rl.Allowed {
			return &VerifyResult{
				Reason:     ReasonRateLimited,
				Error:      msgRateLimited,
				RetryAfter: rl.RetryAfter(now),
			}, nil
		}
	}

	// 2. Session.
	sess, err := e.sessions.Get(ctx, req.SessionToken)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
			return expiredResult(), nil
		}
		return nil, e.storageError("get_session", err)
	}

	// 3. Protocol. Nothing here consumes an attempt.
	switch {
	case !sess.Challenged():
		return protocolResult(msgNoChallenge), nil
	case req.CaptchaType != sess.CaptchaType:
		return protocolResult(msgTypeMismatch), nil
	case req.Answer.Empty() || !req.Answer.Fits(sess.CaptchaType):
		return protocolResult(msgMalformedAnswer), nil
	case math.IsNaN(req.ElapsedSeconds) || math.IsInf(req.ElapsedSeconds, 0) || req.ElapsedSeconds < 0:
		return protocolResult(msgInvalidElapsed), nil
	}

	// 4. Lockout.
	if sess.Locked {
		if now.Before(sess.LockUntil) {
			remaining := sess.LockUntil.Sub(now)
			return &VerifyResult{
				Reason:        ReasonLocked,
				Error:         msgLocked,
				Attempts:      sess.Attempts,
				MaxAttempts:   e.config.Verification.MaxAttempts,
				Locked:        true,
				LockRemaining: remaining,
				RetryAfter:    remaining,
			}, nil
		}
		if err := e.unlock(ctx, sess); err != nil {
			if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
				return expiredResult(), nil
			}
			return nil, e.storageError("unlock_session", err)
		}
	}

	// 5. Minimum solve time, checked before the answer is looked at.
	elapsed := secondsToDuration(req.ElapsedSeconds)
	if e.config.Verification.EnforceServerElapsed && !sess.ChallengeGeneratedAt.IsZero() {
		if server := now.Sub(sess.ChallengeGeneratedAt); server < elapsed {
			elapsed = server
		}
	}
	if elapsed < e.minSolveTime(sess.CaptchaType) {
		return e.recordFailure(ctx, sess, ReasonTooFast, msgTooFast)
	}

	// 6. Compare.
	ok, err := challenge.Match(sess.CaptchaType, sess.Answer, req.Answer, e.sliderTolerance(req.Options))
	if err != nil {
		return protocolResult(msgMalformedAnswer), nil
	}
	if !ok {
		return e.recordFailure(ctx, sess, ReasonWrongAnswer, msgWrongAnswer)
	}

	// 7. Success. Whoever deletes the session first owns the token.
	existed, err := e.sessions.Delete(ctx, sess.Token)
	if err != nil {
		return nil, e.storageError("delete_session", err)
	}
	if !existed {
		return expiredResult(), nil
	}

	tok, payload, err := e.tokens.Mint(sess.Token, internal.Fingerprint(sess.IPFingerprint).String())
	if err != nil {
		e.logger.Error("verification token mint failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrTokenMint, err)
	}
	e.metricInc(MetricTokenMinted)

	return &VerifyResult{
		Verified:  true,
		Token:     tok,
		Timestamp: payload.Minted(),
	}, nil
}

// recordFailure consumes one attempt and locks the session once the cap is reached.
func (e *Engine) recordFailure(ctx context.Context, sess *session.Session, reason FailureReason, msg string) (*VerifyResult, error) {
	attempts, err := e.sessions.IncrementAttempts(ctx, sess.Token)
	if err != nil {
		return nil, e.storageError("increment_attempts", err)
	}

	maxAttempts := e.config.Verification.MaxAttempts
	res := &VerifyResult{
		Reason:            reason,
		Error:             msg,
		Attempts:          attempts,
		MaxAttempts:       maxAttempts,
		RemainingAttempts: remainingAttempts(maxAttempts, attempts),
	}
	if attempts < maxAttempts {
		return res, nil
	}

	lockout := e.config.Verification.LockoutDuration
	locked := true
	until := e.now().Add(lockout)
	if _, err := e.sessions.Update(ctx, sess.Token, session.Patch{Locked: &locked, LockUntil: &until}); err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
			// Solved or expired concurrently; nothing left to lock.
			return res, nil
		}
		return nil, e.storageError("lock_session", err)
	}

	e.metricInc(MetricLockoutTriggered)
	e.emitAudit(ctx, auditEventLockoutTriggered, false, sess.Token, sess.CaptchaType, reason, nil,
		durationMetadata("lockout", lockout))
	e.logger.Debug("captcha session locked",
		zap.String("session", truncateToken(sess.Token)),
		zap.Int("attempts", attempts),
		zap.Duration("lockout", lockout))

	res.Error = msgLockoutTriggered
	res.Locked = true
	res.LockRemaining = lockout
	res.RetryAfter = lockout
	return res, nil
}

// unlock clears an elapsed lock together with the attempts that caused it.
func (e *Engine) unlock(ctx context.Context, sess *session.Session) error {
	unlocked := false
	var zero time.Time
	if _, err := e.sessions.Update(ctx, sess.Token, session.Patch{Locked: &unlocked, LockUntil: &zero}); err != nil {
		return err
	}
	if err := e.sessions.ResetAttempts(ctx, sess.Token); err != nil {
		return err
	}
	sess.Locked = false
	sess.LockUntil = zero
	sess.Attempts = 0
	return nil
}

func (e *Engine) minSolveTime(kind challenge.Kind) time.Duration {
	if kind == challenge.KindMath {
		return e.config.Verification.MinSolveTimeMath
	}
	return e.config.Verification.MinSolveTime
}

func (e *Engine) sliderTolerance(opts VerifyOptions) int {
	if opts.SliderTolerance > 0 {
		return opts.SliderTolerance
	}
	return e.config.Verification.SliderTolerance
}

func expiredResult() *VerifyResult {
	return &VerifyResult{Reason: ReasonExpired, Error: msgInvalidSession}
}

func protocolResult(msg string) *VerifyResult {
	return &VerifyResult{Reason: ReasonProtocol, Error: msg}
}

func remainingAttempts(maxAttempts, attempts int) int {
	if attempts >= maxAttempts {
		return 0
	}
	return maxAttempts - attempts
}

func secondsToDuration(s float64) time.Duration {
	if s >= float64(math.MaxInt64)/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(s * float64(time.Second))
}
