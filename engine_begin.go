package chatauth

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/acadbot/chatauth/internal/rate"
)

// BeginAuthentication resolves the e-mail against the identity store and,
// when a record exists, draws a partial-secret challenge for the caller
// to put to the user. The resolved identity is parked in state; nothing
// about the secret itself is revealed by the returned [Challenge].
//
// Errors: [ErrIdentityNotFound] when no record matches (the e-mail slot
// is cleared so the next turn restarts cleanly), [ErrLookupUnavailable]
// when the store cannot be reached, [ErrLookupRateLimited] when the
// lookup throttle is active and exhausted, [ErrInvalidSecret] when the
// stored identifier is unusable for challenge generation.
func (e *Engine) BeginAuthentication(ctx context.Context, state *ConversationState, email string) (Challenge, error) {
	if e == nil {
		return Challenge{}, ErrEngineNotReady
	}
	if state == nil {
		return Challenge{}, errors.New("conversation state required")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		state.Email = ""
		return Challenge{}, ErrIdentityNotFound
	}

	ip := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLookup(ctx, email, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.emitRateLimit(ctx, "lookup", nil)
				return Challenge{}, ErrLookupRateLimited
			}
			// Redis being down must not lock every user out.
		}
	}

	id, err := e.lookupIdentity(ctx, email)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			state.Email = ""
			e.metricInc(MetricLookupNotFound)
			e.emitAudit(ctx, auditEventLookupFailure, false, "", state.ConversationID, ErrIdentityNotFound, nil)
			e.recordLookupAttempt(ctx, email, ip)
			return Challenge{}, ErrIdentityNotFound
		}

		// Transient failures restart the flow the same way not-found does.
		state.Email = ""
		e.metricInc(MetricLookupUnavailable)
		e.emitAudit(ctx, auditEventLookupFailure, false, "", state.ConversationID, ErrLookupUnavailable, nil)
		return Challenge{}, ErrLookupUnavailable
	}

	secretLength := len([]rune(id.FullSecret))
	if secretLength == 0 {
		state.Email = ""
		e.metricInc(MetricLookupNotFound)
		e.emitAudit(ctx, auditEventLookupFailure, false, id.UserID, state.ConversationID, ErrIdentityNotFound, func() map[string]string {
			return map[string]string{"reason": "empty_identifier"}
		})
		return Challenge{}, ErrIdentityNotFound
	}

	challenge, err := e.selector.Select(secretLength)
	if err != nil {
		return Challenge{}, err
	}

	state.Email = id.Email
	state.FullSecret = id.FullSecret
	state.UserID = id.UserID
	state.Role = id.Role
	state.Pending = &challenge

	e.metricInc(MetricLookupSuccess)
	e.emitAudit(ctx, auditEventLookupSuccess, true, id.UserID, state.ConversationID, nil, nil)
	e.metricInc(MetricChallengeIssued)
	e.emitAudit(ctx, auditEventChallengeIssued, true, id.UserID, state.ConversationID, nil, func() map[string]string {
		return map[string]string{
			"kind":      string(challenge.Kind),
			"parameter": strconv.Itoa(challenge.Parameter),
		}
	})

	return challenge, nil
}

// lookupIdentity wraps the provider call with the configured timeout and
// e-mail normalization guarantees.
func (e *Engine) lookupIdentity(ctx context.Context, email string) (Identity, error) {
	if e.config.Lookup.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Lookup.Timeout)
		defer cancel()
	}

	id, err := e.identities.LookupByEmail(ctx, email)
	if err != nil {
		return Identity{}, err
	}

	if id.Email == "" {
		id.Email = email
	}

	return id, nil
}

// recordLookupAttempt feeds the throttle after a failed lookup. Throttle
// storage errors are swallowed; the limiter is advisory, not a
// correctness dependency.
func (e *Engine) recordLookupAttempt(ctx context.Context, email, ip string) {
	if e.rateLimiter == nil {
		return
	}

	if err := e.rateLimiter.IncrementLookup(ctx, email, ip); errors.Is(err, rate.ErrRateLimited) {
		e.emitRateLimit(ctx, "lookup", nil)
	}
}
