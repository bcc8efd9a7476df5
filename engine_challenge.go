package goCaptcha

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/MrEthical07/goCaptcha/challenge"
	"github.com/MrEthical07/goCaptcha/session"
)

// GenerateChallenge issues one challenge of kind for the session. A session can hold
// only one challenge in its lifetime; asking again returns [ErrChallengeAlreadyIssued].
//
// Two concurrent requests for the same fresh session may both pass the check; the later
// write wins and only its answer is accepted.
func (e *Engine) GenerateChallenge(ctx context.Context, sessionToken string, kind challenge.Kind, opts ChallengeOptions) (*challenge.Challenge, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if !kind.Valid() {
		e.emitAudit(ctx, auditEventChallengeRefused, false, sessionToken, kind, ReasonProtocol, ErrInvalidCaptchaType, nil)
		return nil, fmt.Errorf("%w: %s", ErrInvalidCaptchaType, kind)
	}

	sess, err := e.sessions.Get(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
			e.emitAudit(ctx, auditEventChallengeRefused, false, sessionToken, kind, ReasonExpired, ErrSessionExpired, nil)
			return nil, ErrSessionExpired
		}
		return nil, e.storageError("get_session", err)
	}
	if sess.Challenged() {
		e.emitAudit(ctx, auditEventChallengeRefused, false, sessionToken, kind, ReasonProtocol, ErrChallengeAlreadyIssued, nil)
		return nil, ErrChallengeAlreadyIssued
	}

	c, answer, err := challenge.Generate(kind, challenge.Options{Difficulty: e.difficulty(opts)})
	if err != nil {
		e.logger.Error("challenge generation failed", zap.Stringer("kind", kind), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrChallengeGeneration, err)
	}

	issuedAt := e.now()
	if _, err := e.sessions.Update(ctx, sessionToken, session.Patch{
		CaptchaType:          &kind,
		Answer:               &answer,
		ChallengeGeneratedAt: &issuedAt,
	}); err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
			return nil, ErrSessionExpired
		}
		return nil, e.storageError("update_session", err)
	}

	e.metricInc(MetricChallengeIssued)
	e.emitAudit(ctx, auditEventChallengeIssued, true, sessionToken, kind, ReasonNone, nil, nil)

	return &c, nil
}

func (e *Engine) difficulty(opts ChallengeOptions) int {
	d := e.config.Challenge.DefaultMathDifficulty
	if opts.Difficulty != nil {
		d = *opts.Difficulty
	}
	if d < 0 {
		d = 0
	}
	if d > e.config.Challenge.MaxMathDifficulty {
		d = e.config.Challenge.MaxMathDifficulty
	}
	return d
}
