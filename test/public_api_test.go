package test

import (
	"context"
	"net/http"
	"testing"

	goCaptcha "github.com/MrEthical07/goCaptcha"
	"github.com/MrEthical07/goCaptcha/challenge"
	"github.com/MrEthical07/goCaptcha/middleware"
	"github.com/MrEthical07/goCaptcha/store"
	"github.com/MrEthical07/goCaptcha/token"
)

// Guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = goCaptcha.New
	_ = goCaptcha.DefaultConfig

	var _ *goCaptcha.Engine
	var _ goCaptcha.Config
	var _ goCaptcha.SessionTicket
	var _ goCaptcha.VerifyRequest
	var _ goCaptcha.VerifyResult
	var _ goCaptcha.TokenValidation
	var _ goCaptcha.Stats
	var _ goCaptcha.AuditSink
	var _ store.Backend = store.NewMemoryBackend()

	var _ error = goCaptcha.ErrEngineNotReady
	var _ error = goCaptcha.ErrStorageUnavailable
	var _ error = goCaptcha.ErrSessionExpired
	var _ error = goCaptcha.ErrInvalidCaptchaType
	var _ error = goCaptcha.ErrChallengeAlreadyIssued

	var _ func(*goCaptcha.Engine, ...middleware.Option) func(http.Handler) http.Handler = middleware.RequireVerification
	var _ func(string) (challenge.Kind, error) = challenge.ParseKind
	var _ func(error) string = token.Message

	var _ func(*goCaptcha.Engine, context.Context) (*goCaptcha.SessionTicket, error) = (*goCaptcha.Engine).CreateSession
	var _ func(*goCaptcha.Engine, context.Context, string, challenge.Kind, goCaptcha.ChallengeOptions) (*challenge.Challenge, error) = (*goCaptcha.Engine).GenerateChallenge
	var _ func(*goCaptcha.Engine, context.Context, goCaptcha.VerifyRequest) (*goCaptcha.VerifyResult, error) = (*goCaptcha.Engine).Verify
	var _ func(*goCaptcha.Engine, context.Context, string) (*goCaptcha.TokenValidation, error) = (*goCaptcha.Engine).ValidateToken
	var _ func(*goCaptcha.Engine, context.Context) (*goCaptcha.Stats, error) = (*goCaptcha.Engine).Stats
}
