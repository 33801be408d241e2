package chatauth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/acadbot/chatauth/internal/rate"
)

// SubmitChallengeAnswer verifies the user's answer against the pending
// challenge. On a correct answer the session is established: a token is
// issued, the working secret slots are wiped and the idle clock starts.
// On an incorrect answer a fresh challenge is drawn and stored in
// state.Pending so the user can be asked again; the previous challenge
// is never reused.
//
// Errors: [ErrNoPendingChallenge] when no challenge is outstanding,
// [ErrChallengeAnswerIncorrect] on a wrong answer (retry with the new
// state.Pending), [ErrTokenSigningFailed] when signing fails; in that
// case the pending challenge and secret stay intact so the attempt can
// be retried without re-answering.
func (e *Engine) SubmitChallengeAnswer(ctx context.Context, state *ConversationState, answer string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if state == nil || state.Pending == nil || state.FullSecret == "" {
		return nil, ErrNoPendingChallenge
	}

	challenge := *state.Pending

	if !Matches(state.FullSecret, answer, challenge.Kind, challenge.Parameter) {
		e.metricInc(MetricChallengeFailed)
		e.emitAudit(ctx, auditEventChallengeFailed, false, state.UserID, state.ConversationID, ErrChallengeAnswerIncorrect, func() map[string]string {
			return map[string]string{
				"kind":      string(challenge.Kind),
				"parameter": strconv.Itoa(challenge.Parameter),
			}
		})
		e.recordLookupAttempt(ctx, state.Email, clientIPFromContext(ctx))

		next, err := e.selector.Select(len([]rune(state.FullSecret)))
		if err != nil {
			state.Pending = nil
			return nil, err
		}
		state.Pending = &next

		return nil, ErrChallengeAnswerIncorrect
	}

	result, err := e.IssueToken(Identity{
		UserID: state.UserID,
		Email:  state.Email,
		Role:   state.Role,
	}, true)
	if err != nil {
		return nil, err
	}

	state.clearSecrets()
	state.Authenticated = true
	state.Token = result.Token
	state.Role = result.Role
	state.LastActivity = time.Now()

	e.metricInc(MetricChallengePassed)
	e.emitAudit(ctx, auditEventChallengePassed, true, state.UserID, state.ConversationID, nil, func() map[string]string {
		return map[string]string{
			"kind": string(challenge.Kind),
		}
	})
	e.resetLookupAttempts(ctx, state.Email, clientIPFromContext(ctx))

	return result, nil
}

// AuthenticateWithAnswer is the one-shot, stateless form of the
// challenge flow used by transport-level callers: the challenge kind
// and parameter were communicated to the user out of band, and lookup
// plus verification happen in a single call. No conversation state is
// touched.
func (e *Engine) AuthenticateWithAnswer(ctx context.Context, email, answer string, kind ChallengeKind, parameter int) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrIdentityNotFound
	}

	ip := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLookup(ctx, email, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.emitRateLimit(ctx, "lookup", nil)
				return nil, ErrLookupRateLimited
			}
		}
	}

	id, err := e.lookupIdentity(ctx, email)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			e.metricInc(MetricLookupNotFound)
			e.emitAudit(ctx, auditEventLookupFailure, false, "", "", ErrIdentityNotFound, nil)
			e.recordLookupAttempt(ctx, email, ip)
			return nil, ErrIdentityNotFound
		}

		e.metricInc(MetricLookupUnavailable)
		e.emitAudit(ctx, auditEventLookupFailure, false, "", "", ErrLookupUnavailable, nil)
		return nil, ErrLookupUnavailable
	}

	if !Matches(id.FullSecret, answer, kind, parameter) {
		e.metricInc(MetricChallengeFailed)
		e.emitAudit(ctx, auditEventChallengeFailed, false, id.UserID, "", ErrChallengeAnswerIncorrect, func() map[string]string {
			return map[string]string{
				"kind":      string(kind),
				"parameter": strconv.Itoa(parameter),
			}
		})
		e.recordLookupAttempt(ctx, email, ip)
		return nil, ErrChallengeAnswerIncorrect
	}

	result, err := e.IssueToken(id, true)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricChallengePassed)
	e.emitAudit(ctx, auditEventChallengePassed, true, id.UserID, "", nil, func() map[string]string {
		return map[string]string{
			"kind": string(kind),
		}
	})
	e.resetLookupAttempts(ctx, email, ip)

	return result, nil
}

// AuthenticateVerified resolves the identity and issues a token for a
// credential that was already verified by an external mechanism, such
// as a password check. The challenge flag on the token stays off so
// downstream services can tell the grant types apart.
func (e *Engine) AuthenticateVerified(ctx context.Context, email string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrIdentityNotFound
	}

	id, err := e.lookupIdentity(ctx, email)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			e.metricInc(MetricLookupNotFound)
			return nil, ErrIdentityNotFound
		}
		e.metricInc(MetricLookupUnavailable)
		return nil, ErrLookupUnavailable
	}
	e.metricInc(MetricLookupSuccess)
	e.emitAudit(ctx, auditEventLookupSuccess, true, id.UserID, "", nil, nil)

	result, err := e.IssueToken(id, false)
	if err != nil {
		return nil, err
	}

	e.resetLookupAttempts(ctx, email, clientIPFromContext(ctx))

	return result, nil
}

// resetLookupAttempts clears the throttle counters after a successful
// authentication.
func (e *Engine) resetLookupAttempts(ctx context.Context, email, ip string) {
	if e.rateLimiter == nil {
		return
	}

	_ = e.rateLimiter.ResetLookup(ctx, email, ip)
}
