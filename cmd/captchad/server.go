package main

import (
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	goCaptcha "github.com/MrEthical07/goCaptcha"
	"github.com/MrEthical07/goCaptcha/challenge"
	"github.com/MrEthical07/goCaptcha/middleware"
)

const (
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 16 << 10
)

type server struct {
	engine  *goCaptcha.Engine
	logger  *zap.Logger
	metrics http.Handler
	path    string
}

func newRouter(s *server) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.requestContext)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, s.path, s.metrics)
	}

	r.Route("/v1/captcha", func(r chi.Router) {
		r.Post("/session", s.handleCreateSession)
		r.Post("/challenge", s.handleChallenge)
		r.Post("/verify", s.handleVerify)
		r.Post("/token/validate", s.handleValidateToken)
		r.Get("/stats", s.handleStats)
	})

	r.With(middleware.RequireVerification(s.engine)).
		Post("/v1/campaigns/{id}/donations", s.handleDonation)

	return r
}

// requestContext tags the request with an id and the peer IP for audit events.
func (s *server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := goCaptcha.WithRequestID(r.Context(), id)
		ctx = goCaptcha.WithClientIP(ctx, peerIP(r.RemoteAddr))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func peerIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

/*
====================================
HANDLERS
====================================
*/

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"degraded": s.engine.Degraded(),
	})
}

func (s *server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ticket, err := s.engine.CreateSession(r.Context())
	if err != nil {
		s.internalError(w, r, "create session", err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

type challengeRequest struct {
	SessionToken string `json:"sessionToken"`
	Type         string `json:"type"`
	Difficulty   *int   `json:"difficulty,omitempty"`
}

func (s *server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	kind, err := challenge.ParseKind(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid captcha type")
		return
	}

	c, err := s.engine.GenerateChallenge(r.Context(), req.SessionToken, kind, goCaptcha.ChallengeOptions{
		Difficulty: req.Difficulty,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, c)
	case errors.Is(err, goCaptcha.ErrInvalidCaptchaType):
		writeError(w, http.StatusBadRequest, "Invalid captcha type")
	case errors.Is(err, goCaptcha.ErrSessionExpired):
		writeError(w, http.StatusBadRequest, "Invalid or expired session")
	case errors.Is(err, goCaptcha.ErrChallengeAlreadyIssued):
		writeError(w, http.StatusConflict, "Challenge already issued for this session")
	default:
		s.internalError(w, r, "generate challenge", err)
	}
}

type verifyRequest struct {
	SessionToken string          `json:"sessionToken"`
	CaptchaType  string          `json:"captchaType"`
	Answer       json.RawMessage `json:"answer"`
	ElapsedTime  *float64        `json:"elapsedTime"`
}

type verifyResponse struct {
	*goCaptcha.VerifyResult
	LockRemainingSeconds int `json:"lockRemaining,omitempty"`
}

func (s *server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// Slider tolerance is server policy (captcha.slider_tolerance) and never read from
	// the body. Unknown types and undecodable answers are passed through so the engine reports
	// them as protocol failures under the rate limit.
	kind, _ := challenge.ParseKind(req.CaptchaType)
	answer, _ := challenge.ParseSubmission(kind, req.Answer)
	elapsed := math.NaN()
	if req.ElapsedTime != nil {
		elapsed = *req.ElapsedTime
	}

	res, err := s.engine.Verify(r.Context(), goCaptcha.VerifyRequest{
		SessionToken:   req.SessionToken,
		CaptchaType:    kind,
		Answer:         answer,
		ElapsedSeconds: elapsed,
	})
	if err != nil {
		s.internalError(w, r, "verify", err)
		return
	}

	if res.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(ceilSeconds(res.RetryAfter)))
	}
	writeJSON(w, verifyStatus(res), verifyResponse{
		VerifyResult:         res,
		LockRemainingSeconds: ceilSeconds(res.LockRemaining),
	})
}

func verifyStatus(res *goCaptcha.VerifyResult) int {
	if res.Verified {
		return http.StatusOK
	}
	switch res.Reason {
	case goCaptcha.ReasonRateLimited:
		return http.StatusTooManyRequests
	case goCaptcha.ReasonLocked:
		return http.StatusLocked
	}
	if res.Locked {
		return http.StatusLocked
	}
	return http.StatusBadRequest
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (s *server) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.engine.ValidateToken(r.Context(), req.Token)
	if err != nil {
		s.internalError(w, r, "validate token", err)
		return
	}
	status := http.StatusOK
	if !res.Valid {
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, res)
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		s.internalError(w, r, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleDonation is a stand-in for a protected campaign route.
func (s *server) handleDonation(w http.ResponseWriter, r *http.Request) {
	v, _ := middleware.VerificationFromContext(r.Context())
	resp := map[string]any{
		"campaign": chi.URLParam(r, "id"),
		"accepted": true,
	}
	if v != nil {
		resp["verifiedAt"] = v.MintedAt
	}
	writeJSON(w, http.StatusAccepted, resp)
}

/*
====================================
HELPERS
====================================
*/

func (s *server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := http.StatusInternalServerError
	msg := "Internal error"
	if errors.Is(err, goCaptcha.ErrStorageUnavailable) || errors.Is(err, goCaptcha.ErrEngineNotReady) {
		status = http.StatusServiceUnavailable
		msg = "Service unavailable"
	}
	s.logger.Error("request failed",
		zap.String("op", op),
		zap.String("request_id", w.Header().Get(requestIDHeader)),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	writeError(w, status, msg)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
