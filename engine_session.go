package goCaptcha

import (
	"context"
)

// CreateSession starts a challenge session bound to the fingerprint of the client IP
// in ctx (see [WithClientIP]).
func (e *Engine) CreateSession(ctx context.Context) (*SessionTicket, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	fp := e.fingerprint(ctx)
	sess, err := e.sessions.Create(ctx, fp)
	if err != nil {
		err = e.storageError("create_session", err)
		e.emitAudit(ctx, auditEventStorageFailure, false, "", 0, ReasonNone, err, nil)
		return nil, err
	}

	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventSessionCreated, true, sess.Token, 0, ReasonNone, nil, nil)

	return &SessionTicket{
		SessionToken:     sess.Token,
		ExpiresInSeconds: int(e.config.Session.MaxAge.Seconds()),
	}, nil
}
