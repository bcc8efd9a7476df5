package goCaptcha

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/goCaptcha/token"
)

var errInvalidToken = errors.New("invalid verification token")

// ValidateToken checks a verification token minted by [Engine.Verify]. The client IP in
// ctx is compared with the minting IP; a mismatch is reported but does not invalidate
// the token. Tokens are not consumed: a valid token stays valid until it expires.
func (e *Engine) ValidateToken(ctx context.Context, tok string) (*TokenValidation, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	tok = strings.TrimSpace(tok)
	if tok == "" {
		e.metricInc(MetricTokenInvalid)
		return &TokenValidation{Error: msgTokenMissing}, nil
	}

	v := e.tokens.Validate(tok, e.fingerprint(ctx).String())
	if !v.Valid {
		e.metricInc(MetricTokenInvalid)
		e.emitAudit(ctx, auditEventTokenValidated, false, v.Payload.SessionToken, 0, ReasonNone, errInvalidToken,
			func() map[string]string { return map[string]string{"cause": token.Message(v.Err)} })
		return &TokenValidation{Error: token.Message(v.Err)}, nil
	}

	e.metricInc(MetricTokenValid)
	if v.IPMismatch {
		e.metricInc(MetricTokenIPMismatch)
	}
	e.emitAudit(ctx, auditEventTokenValidated, true, v.Payload.SessionToken, 0, ReasonNone, nil,
		func() map[string]string {
			if v.IPMismatch {
				return map[string]string{"ip_mismatch": "true"}
			}
			return nil
		})

	return &TokenValidation{
		Valid:        true,
		SessionToken: v.Payload.SessionToken,
		MintedAt:     v.Payload.Minted(),
		IPMismatch:   v.IPMismatch,
	}, nil
}
