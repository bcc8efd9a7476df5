package goCaptcha

import (
	"context"

	"go.uber.org/zap"
)

// Stats reports active sessions, rate-limit entries, storage state and the effective
// limits. Counting scans the key space and is meant for dashboards, not hot paths. A
// count that cannot be read is logged and reported as -1.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	cfg := e.config
	st := &Stats{
		Backend:                e.backend.Name(),
		Degraded:               e.Degraded(),
		SessionMaxAgeSeconds:   int(cfg.Session.MaxAge.Seconds()),
		MaxAttempts:            cfg.Verification.MaxAttempts,
		LockoutSeconds:         int(cfg.Verification.LockoutDuration.Seconds()),
		RateLimitEnabled:       cfg.RateLimit.Enabled,
		RateLimitMaxRequests:   cfg.RateLimit.MaxRequests,
		RateLimitWindowSeconds: int(cfg.RateLimit.Window.Seconds()),
		TokenTTLSeconds:        int(cfg.Token.TTL.Seconds()),
		TokenEncoding:          e.tokens.Codec(),
	}

	n, err := e.sessions.Count(ctx)
	if err != nil {
		e.logger.Warn("session count unavailable", zap.Error(err))
		n = -1
	}
	st.ActiveSessions = n

	if e.limiter != nil {
		n, err := e.limiter.Entries(ctx)
		if err != nil {
			e.logger.Warn("rate limit entry count unavailable", zap.Error(err))
			n = -1
		}
		st.RateLimitEntries = n
	}

	return st, nil
}
