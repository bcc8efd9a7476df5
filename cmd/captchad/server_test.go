package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	goCaptcha "github.com/MrEthical07/goCaptcha"
	"github.com/MrEthical07/goCaptcha/challenge"
)

func newTestServer(t *testing.T, mutate func(*goCaptcha.Config)) http.Handler {
	t.Helper()

	cfg := goCaptcha.DefaultConfig()
	cfg.Storage.JanitorInterval = 0
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := goCaptcha.New().WithConfig(cfg).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	endpoint, err := newMetricsEndpoint("prometheus", engine)
	require.NoError(t, err)

	return newRouter(&server{
		engine:  engine,
		logger:  zap.NewNop(),
		metrics: endpoint.handler,
		path:    "/metrics",
	})
}

func do(t *testing.T, h http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()

	rec := do(t, h, http.MethodPost, "/v1/captcha/session", nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	ticket := decode[goCaptcha.SessionTicket](t, rec)
	require.NotEmpty(t, ticket.SessionToken)
	require.Equal(t, 300, ticket.ExpiresInSeconds)
	return ticket.SessionToken
}

// mathAnswer requests a math challenge and solves it from the question text.
func mathAnswer(t *testing.T, h http.Handler, sessionToken string) string {
	t.Helper()

	rec := do(t, h, http.MethodPost, "/v1/captcha/challenge", map[string]any{
		"sessionToken": sessionToken,
		"type":         "math",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	c := decode[challenge.Challenge](t, rec)
	require.Equal(t, challenge.KindMath, c.Kind)
	require.NotNil(t, c.Math)

	var a, b int
	var op string
	_, err := fmt.Sscanf(c.Math.Question, "%d %s %d", &a, &op, &b)
	require.NoError(t, err)

	switch op {
	case "+":
		return strconv.Itoa(a + b)
	case "-":
		return strconv.Itoa(a - b)
	case "*":
		return strconv.Itoa(a * b)
	}
	t.Fatalf("unexpected operator %q", op)
	return ""
}

func verifyBody(sessionToken string, answer any, elapsed float64) map[string]any {
	return map[string]any{
		"sessionToken": sessionToken,
		"captchaType":  "math",
		"answer":       answer,
		"elapsedTime":  elapsed,
	}
}

func TestVerifyFlowUnlocksProtectedRoute(t *testing.T) {
	h := newTestServer(t, nil)

	tok := createSession(t, h)
	answer := mathAnswer(t, h, tok)

	rec := do(t, h, http.MethodPost, "/v1/captcha/verify", verifyBody(tok, answer, 3), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[goCaptcha.VerifyResult](t, rec)
	require.True(t, res.Verified)
	require.NotEmpty(t, res.Token)

	rec = do(t, h, http.MethodPost, "/v1/captcha/token/validate", map[string]string{"token": res.Token}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[goCaptcha.TokenValidation](t, rec)
	require.True(t, v.Valid)
	require.Equal(t, tok, v.SessionToken)
	require.False(t, v.IPMismatch)

	rec = do(t, h, http.MethodPost, "/v1/campaigns/42/donations", nil, http.Header{"X-Captcha-Token": {res.Token}})
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), `"campaign":"42"`)

	rec = do(t, h, http.MethodPost, "/v1/campaigns/42/donations", nil, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// The session is consumed by the successful verification.
	rec = do(t, h, http.MethodPost, "/v1/captcha/verify", verifyBody(tok, answer, 3), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, goCaptcha.ReasonExpired, decode[goCaptcha.VerifyResult](t, rec).Reason)
}

func TestVerifyLockoutReturnsLockedWithRetryAfter(t *testing.T) {
	h := newTestServer(t, nil)

	tok := createSession(t, h)
	mathAnswer(t, h, tok)

	for i := 1; i <= 2; i++ {
		rec := do(t, h, http.MethodPost, "/v1/captcha/verify", verifyBody(tok, "-1", 3), nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		res := decode[goCaptcha.VerifyResult](t, rec)
		require.Equal(t, goCaptcha.ReasonWrongAnswer, res.Reason)
		require.Equal(t, 3-i, res.RemainingAttempts)
	}

	rec := do(t, h, http.MethodPost, "/v1/captcha/verify", verifyBody(tok, "-1", 3), nil)
	require.Equal(t, http.StatusLocked, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
	body := decode[map[string]any](t, rec)
	require.Equal(t, true, body["locked"])
	require.EqualValues(t, 60, body["lockRemaining"])

	rec = do(t, h, http.MethodPost, "/v1/captcha/verify", verifyBody(tok, "-1", 3), nil)
	require.Equal(t, http.StatusLocked, rec.Code)
	require.Equal(t, goCaptcha.ReasonLocked, decode[goCaptcha.VerifyResult](t, rec).Reason)
}

func sliderBody(t *testing.T, h http.Handler, tolerance int) map[string]any {
	t.Helper()

	tok := createSession(t, h)
	rec := do(t, h, http.MethodPost, "/v1/captcha/challenge", map[string]any{
		"sessionToken": tok,
		"type":         "slider",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The target is never below 20, so 0 only passes with a wide tolerance.
	return map[string]any{
		"sessionToken":    tok,
		"captchaType":     "slider",
		"answer":          0,
		"elapsedTime":     3,
		"sliderTolerance": tolerance,
	}
}

func TestVerifyIgnoresClientSliderTolerance(t *testing.T) {
	h := newTestServer(t, nil)

	for i := 0; i < 10; i++ {
		rec := do(t, h, http.MethodPost, "/v1/captcha/verify", sliderBody(t, h, 100), nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		res := decode[goCaptcha.VerifyResult](t, rec)
		require.False(t, res.Verified)
		require.Equal(t, goCaptcha.ReasonWrongAnswer, res.Reason)
		require.Empty(t, res.Token)
		require.NotContains(t, rec.Body.String(), `"timestamp"`)
	}
}

func TestVerifySliderToleranceFromServerConfig(t *testing.T) {
	h := newTestServer(t, func(cfg *goCaptcha.Config) {
		cfg.Verification.SliderTolerance = 100
	})

	rec := do(t, h, http.MethodPost, "/v1/captcha/verify", sliderBody(t, h, 0), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[goCaptcha.VerifyResult](t, rec)
	require.True(t, res.Verified)
	require.Contains(t, rec.Body.String(), `"timestamp"`)
}

func TestVerifyProtocolErrors(t *testing.T) {
	h := newTestServer(t, nil)

	tok := createSession(t, h)
	mathAnswer(t, h, tok)

	rec := do(t, h, http.MethodPost, "/v1/captcha/verify", map[string]any{
		"sessionToken": tok,
		"captchaType":  "math",
		"answer":       "7",
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	res := decode[goCaptcha.VerifyResult](t, rec)
	require.Equal(t, goCaptcha.ReasonProtocol, res.Reason)

	rec = do(t, h, http.MethodPost, "/v1/captcha/verify", map[string]any{
		"sessionToken": tok,
		"captchaType":  "slider",
		"answer":       40,
		"elapsedTime":  3,
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, goCaptcha.ReasonProtocol, decode[goCaptcha.VerifyResult](t, rec).Reason)

	req := httptest.NewRequest(http.MethodPost, "/v1/captcha/verify", strings.NewReader("{"))
	raw := httptest.NewRecorder()
	h.ServeHTTP(raw, req)
	require.Equal(t, http.StatusBadRequest, raw.Code)
	require.Equal(t, "Invalid JSON body", decode[map[string]string](t, raw)["error"])
}

func TestChallengeErrors(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/v1/captcha/challenge", map[string]any{
		"sessionToken": "missing",
		"type":         "math",
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid or expired session", decode[map[string]string](t, rec)["error"])

	tok := createSession(t, h)
	rec = do(t, h, http.MethodPost, "/v1/captcha/challenge", map[string]any{
		"sessionToken": tok,
		"type":         "crossword",
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid captcha type", decode[map[string]string](t, rec)["error"])

	rec = do(t, h, http.MethodPost, "/v1/captcha/challenge", map[string]any{
		"sessionToken": tok,
		"type":         "slider",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	c := decode[challenge.Challenge](t, rec)
	require.NotNil(t, c.Slider)
	require.Equal(t, 0, c.Slider.Min)
	require.Equal(t, 100, c.Slider.Max)

	rec = do(t, h, http.MethodPost, "/v1/captcha/challenge", map[string]any{
		"sessionToken": tok,
		"type":         "math",
	}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestVerifyRateLimited(t *testing.T) {
	h := newTestServer(t, func(cfg *goCaptcha.Config) {
		cfg.RateLimit.MaxRequests = 2
	})

	tok := createSession(t, h)
	for i := 0; i < 2; i++ {
		rec := do(t, h, http.MethodPost, "/v1/captcha/verify", verifyBody(tok, "1", 3), nil)
		require.NotEqual(t, http.StatusTooManyRequests, rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/v1/captcha/verify", verifyBody(tok, "1", 3), nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, goCaptcha.ReasonRateLimited, decode[goCaptcha.VerifyResult](t, rec).Reason)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/v1/captcha/token/validate", map[string]string{"token": "not-a-token"}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	v := decode[goCaptcha.TokenValidation](t, rec)
	require.False(t, v.Valid)
	require.Equal(t, "Invalid token", v.Error)
}

func TestOperationalEndpoints(t *testing.T) {
	h := newTestServer(t, nil)
	createSession(t, h)

	rec := do(t, h, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode[map[string]any](t, rec)["status"])

	rec = do(t, h, http.MethodGet, "/v1/captcha/stats", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[goCaptcha.Stats](t, rec)
	require.EqualValues(t, 1, stats.ActiveSessions)
	require.Equal(t, "memory", stats.Backend)
	require.Equal(t, 3, stats.MaxAttempts)

	rec = do(t, h, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "gocaptcha_session_created_total 1")
}

func TestRequestIDPropagated(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/healthz", nil, http.Header{requestIDHeader: {"req-123"}})
	require.Equal(t, "req-123", rec.Header().Get(requestIDHeader))

	rec = do(t, h, http.MethodGet, "/healthz", nil, nil)
	require.Len(t, rec.Header().Get(requestIDHeader), 36)
}

func TestOtelMetricsEndpoint(t *testing.T) {
	cfg := goCaptcha.DefaultConfig()
	cfg.Storage.JanitorInterval = 0
	engine, err := goCaptcha.New().WithConfig(cfg).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	endpoint, err := newMetricsEndpoint("otel", engine)
	require.NoError(t, err)
	t.Cleanup(func() { _ = endpoint.shutdown(t.Context()) })

	_, err = engine.CreateSession(goCaptcha.WithClientIP(t.Context(), "203.0.113.9"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	endpoint.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "gocaptcha_session_created")

	_, err = newMetricsEndpoint("statsd", engine)
	require.Error(t, err)
}
