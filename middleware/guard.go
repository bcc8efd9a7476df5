package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	goCaptcha "github.com/MrEthical07/goCaptcha"
)

// TokenHeader is the default request header carrying the verification token.
const TokenHeader = "X-Captcha-Token"

type verificationContextKey struct{}

// VerificationFromContext returns the token validation attached by [RequireVerification].
func VerificationFromContext(ctx context.Context) (*goCaptcha.TokenValidation, bool) {
	res, ok := ctx.Value(verificationContextKey{}).(*goCaptcha.TokenValidation)
	return res, ok
}

type options struct {
	header           string
	clientIP         func(*http.Request) string
	rejectIPMismatch bool
}

// Option configures [RequireVerification].
type Option func(*options)

// WithHeader reads the token from name instead of [TokenHeader].
func WithHeader(name string) Option {
	return func(o *options) {
		if name != "" {
			o.header = name
		}
	}
}

// WithClientIP overrides how the client IP is derived from the request. The default is
// the IP already in the request context, else the host part of RemoteAddr.
func WithClientIP(fn func(*http.Request) string) Option {
	return func(o *options) {
		if fn != nil {
			o.clientIP = fn
		}
	}
}

// WithRejectIPMismatch rejects valid tokens presented from an IP other than the one
// that solved the challenge.
func WithRejectIPMismatch(reject bool) Option {
	return func(o *options) {
		o.rejectIPMismatch = reject
	}
}

// RequireVerification rejects requests without a valid verification token with
// 403 and a JSON body {"error": "..."}. Accepted requests carry the validation in their
// context.
func RequireVerification(engine *goCaptcha.Engine, opts ...Option) func(http.Handler) http.Handler {
	o := options{
		header:   TokenHeader,
		clientIP: RemoteIP,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				reject(w, http.StatusServiceUnavailable, "Verification unavailable")
				return
			}

			tok := r.Header.Get(o.header)
			if tok == "" {
				tok, _ = captchaToken(r.Header.Get("Authorization"))
			}

			ctx := r.Context()
			if goCaptcha.ClientIPFromContext(ctx) == "" {
				ctx = goCaptcha.WithClientIP(ctx, o.clientIP(r))
			}

			res, err := engine.ValidateToken(ctx, tok)
			if err != nil {
				reject(w, http.StatusServiceUnavailable, "Verification unavailable")
				return
			}
			if !res.Valid {
				reject(w, http.StatusForbidden, res.Error)
				return
			}
			if o.rejectIPMismatch && res.IPMismatch {
				reject(w, http.StatusForbidden, "Invalid token")
				return
			}

			ctx = context.WithValue(ctx, verificationContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RemoteIP returns the client IP from the request context, falling back to the host
// part of r.RemoteAddr.
func RemoteIP(r *http.Request) string {
	if ip := goCaptcha.ClientIPFromContext(r.Context()); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func reject(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func captchaToken(value string) (string, bool) {
	const scheme = "Captcha "
	if !strings.HasPrefix(value, scheme) {
		return "", false
	}

	token := strings.TrimSpace(value[len(scheme):])
	if token == "" {
		return "", false
	}

	return token, true
}
