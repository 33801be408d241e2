package chatauth

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLookupSuccess    = "lookup_success"
	auditEventLookupFailure    = "lookup_failure"
	auditEventChallengeIssued  = "challenge_issued"
	auditEventChallengePassed  = "challenge_passed"
	auditEventChallengeFailed  = "challenge_failed"
	auditEventTokenIssued      = "token_issued"
	auditEventTokenRejected    = "token_rejected"
	auditEventIdleLogout       = "idle_logout"
	auditEventLogout           = "logout"
	auditEventRateLimitTrigger = "rate_limit_triggered"
)

// AuditErrorCode defines a public type used by chatauth APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrIdentityNotFound  AuditErrorCode = "identity_not_found"
	auditErrLookupUnavailable AuditErrorCode = "lookup_unavailable"
	auditErrRateLimited       AuditErrorCode = "rate_limited"
	auditErrInvalidSecret     AuditErrorCode = "invalid_secret"
	auditErrNoPending         AuditErrorCode = "no_pending_challenge"
	auditErrAnswerIncorrect   AuditErrorCode = "answer_incorrect"
	auditErrSigningFailed     AuditErrorCode = "token_signing_failed"
	auditErrTokenExpired      AuditErrorCode = "token_expired"
	auditErrTokenMalformed    AuditErrorCode = "token_malformed"
	auditErrIdleTimeout       AuditErrorCode = "session_idle_timeout"
	auditErrInternal          AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	conversationID string,
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
		Timestamp:      time.Now().UTC(),
		EventType:      eventType,
		UserID:         userID,
		ConversationID: conversationID,
		Channel:        channelFromContext(ctx),
		IP:             clientIPFromContext(ctx),
		Success:        success,
		Metadata:       metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope string, metadataBuilder func() map[string]string) {
	e.metricInc(MetricLookupRateLimited)
	e.emitAudit(ctx, auditEventRateLimitTrigger, false, "", "", ErrLookupRateLimited, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrIdentityNotFound):
		return auditErrIdentityNotFound
	case errors.Is(err, ErrLookupUnavailable):
		return auditErrLookupUnavailable
	case errors.Is(err, ErrLookupRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrInvalidSecret):
		return auditErrInvalidSecret
	case errors.Is(err, ErrNoPendingChallenge):
		return auditErrNoPending
	case errors.Is(err, ErrChallengeAnswerIncorrect):
		return auditErrAnswerIncorrect
	case errors.Is(err, ErrTokenSigningFailed):
		return auditErrSigningFailed
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenMalformed):
		return auditErrTokenMalformed
	case errors.Is(err, ErrSessionIdleTimeout):
		return auditErrIdleTimeout
	default:
		return auditErrInternal
	}
}
