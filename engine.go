package chatauth

import (
	"context"
	"errors"
	"time"

	"github.com/acadbot/chatauth/internal/rate"
	"github.com/acadbot/chatauth/token"
	"github.com/golang-jwt/jwt/v5"
)

// Engine defines a public type used by chatauth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// The only mutable value an Engine touches is the [ConversationState] the
// caller passes in, which must not be shared between concurrent requests
// for the same conversation.
type Engine struct {
	config      Config
	identities  IdentityProvider
	tokens      *token.Manager
	selector    *Selector
	rateLimiter *rate.Limiter
	audit       *auditDispatcher
	metrics     *Metrics
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// CheckSession runs the sliding-window inactivity monitor plus a token
// liveness check. It must be invoked at the start of every protected
// operation.
//
// Returns (true, nil) when the session is still usable; LastActivity is
// refreshed so any activity resets the idle clock. Returns (false, nil)
// when the conversation was never authenticated. Returns false with
// [ErrSessionIdleTimeout] or [ErrTokenExpired] when a forced logout was
// applied: all authentication and working identity slots are cleared and
// the caller should surface [UserMessage] of the error. Repeating the
// call with the same now never turns an active session inactive or
// double-applies the logout.
func (e *Engine) CheckSession(state *ConversationState, now time.Time) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.Observe(MetricSessionCheckLatency, time.Since(start))
		}
	}()

	if state == nil {
		return false, nil
	}
	if !state.Authenticated || state.Token == "" {
		return false, nil
	}

	if live, _ := e.tokens.Live(state.Token, now); !live {
		e.forceLogout(state, ErrTokenExpired)
		return false, ErrTokenExpired
	}

	if state.LastActivity.IsZero() {
		state.LastActivity = now
		return true, nil
	}

	if now.Sub(state.LastActivity) > e.config.Session.IdleTimeout {
		e.forceLogout(state, ErrSessionIdleTimeout)
		return false, ErrSessionIdleTimeout
	}

	state.LastActivity = now
	return true, nil
}

// forceLogout clears every authentication and working identity slot. The
// notice to the user is produced by the caller via [UserMessage].
func (e *Engine) forceLogout(state *ConversationState, cause error) {
	userID := state.UserID
	conversationID := state.ConversationID
	state.clearAll()

	switch {
	case errors.Is(cause, ErrSessionIdleTimeout):
		e.metricInc(MetricIdleLogout)
		e.emitAudit(context.Background(), auditEventIdleLogout, false, userID, conversationID, cause, nil)
	default:
		e.metricInc(MetricTokenExpired)
		e.emitAudit(context.Background(), auditEventTokenRejected, false, userID, conversationID, cause, nil)
	}
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// It is the explicit user-initiated transition back to the
// unauthenticated state and is safe to call from any state.
func (e *Engine) Logout(state *ConversationState) {
	if e == nil || state == nil {
		return
	}

	wasAuthenticated := state.Authenticated
	userID := state.UserID
	conversationID := state.ConversationID
	state.clearAll()

	if wasAuthenticated {
		e.metricInc(MetricLogout)
		e.emitAudit(context.Background(), auditEventLogout, true, userID, conversationID, nil, nil)
	}
}

// ValidateToken fully verifies a bearer token's signature and claims.
// This is the resource-server operation; the conversational layer's
// liveness check never replaces it.
//
// ValidateToken may return an error when input validation, dependency calls, or security checks fail.
// ValidateToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ValidateToken(tokenStr string) (*token.SessionClaims, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.Parse(tokenStr)
	if err != nil {
		e.metricInc(MetricTokenRejected)
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// IssueToken builds and signs a session token for an already verified
// identity. challengeAuth marks whether the credential came from the
// challenge-response flow.
//
// IssueToken may return an error when input validation, dependency calls, or security checks fail.
// IssueToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) IssueToken(id Identity, challengeAuth bool) (*AuthResult, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	role := id.Role
	if role == "" {
		role = e.config.Lookup.DefaultRole
	}

	tok, err := e.tokens.Issue(id.UserID, id.Email, role, challengeAuth)
	if err != nil {
		e.metricInc(MetricTokenSigningFailed)
		e.emitAudit(context.Background(), auditEventTokenIssued, false, id.UserID, "", ErrTokenSigningFailed, nil)
		return nil, ErrTokenSigningFailed
	}

	e.metricInc(MetricTokenIssued)
	e.emitAudit(context.Background(), auditEventTokenIssued, true, id.UserID, "", nil, func() map[string]string {
		return map[string]string{
			"challenge_auth": boolString(challengeAuth),
		}
	})

	return &AuthResult{
		Token:  tok,
		UserID: id.UserID,
		Email:  id.Email,
		Name:   id.FullName,
		Role:   role,
	}, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
