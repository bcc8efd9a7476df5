package goCaptcha

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goCaptcha/challenge"
	"github.com/MrEthical07/goCaptcha/session"
)

const (
	auditEventSessionCreated   = "session_created"
	auditEventChallengeIssued  = "challenge_issued"
	auditEventChallengeRefused = "challenge_refused"
	auditEventVerifySuccess    = "verify_success"
	auditEventVerifyFailure    = "verify_failure"
	auditEventLockoutTriggered = "lockout_triggered"
	auditEventRateLimited      = "rate_limited"
	auditEventTokenValidated   = "token_validated"
	auditEventStorageFailure   = "storage_failure"
)

// AuditErrorCode is the stable error classification written to audit events.
type AuditErrorCode string

const (
	auditErrSessionExpired AuditErrorCode = "session_expired"
	auditErrInvalidType    AuditErrorCode = "invalid_captcha_type"
	auditErrAlreadyIssued  AuditErrorCode = "challenge_already_issued"
	auditErrInvalidToken   AuditErrorCode = "invalid_token"
	auditErrUnavailable    AuditErrorCode = "backend_unavailable"
	auditErrInternal       AuditErrorCode = "internal_error"
)

// auditSessionPrefix is how much of a session token is written to audit events.
const auditSessionPrefix = 12

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	sessionToken string,
	kind challenge.Kind,
	reason FailureReason,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:          uuid.NewString(),
		Timestamp:   e.now().UTC(),
		EventType:   eventType,
		RequestID:   requestIDFromContext(ctx),
		SessionID:   truncateToken(sessionToken),
		IP:          clientIPFromContext(ctx),
		CaptchaType: kind.String(),
		Success:     success,
		Reason:      string(reason),
		Metadata:    metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func truncateToken(tok string) string {
	if len(tok) <= auditSessionPrefix {
		return tok
	}
	return tok[:auditSessionPrefix]
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrSessionExpired), errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrInvalidCaptchaType):
		return auditErrInvalidType
	case errors.Is(err, ErrChallengeAlreadyIssued):
		return auditErrAlreadyIssued
	case errors.Is(err, ErrStorageUnavailable):
		return auditErrUnavailable
	case errors.Is(err, errInvalidToken):
		return auditErrInvalidToken
	default:
		return auditErrInternal
	}
}

func durationMetadata(key string, d time.Duration) func() map[string]string {
	return func() map[string]string {
		return map[string]string{key: d.Round(time.Millisecond).String()}
	}
}
