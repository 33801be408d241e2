package chatauth

import "errors"

var (
	// ErrIdentityNotFound is an exported constant or variable used by the authentication engine.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrLookupUnavailable is an exported constant or variable used by the authentication engine.
	ErrLookupUnavailable = errors.New("identity lookup unavailable")
	// ErrLookupRateLimited is an exported constant or variable used by the authentication engine.
	ErrLookupRateLimited = errors.New("identity lookup rate limited")
	// ErrInvalidSecret is an exported constant or variable used by the authentication engine.
	ErrInvalidSecret = errors.New("invalid secret")
	// ErrNoPendingChallenge is an exported constant or variable used by the authentication engine.
	ErrNoPendingChallenge = errors.New("no pending challenge")
	// ErrChallengeAnswerIncorrect is an exported constant or variable used by the authentication engine.
	ErrChallengeAnswerIncorrect = errors.New("challenge answer incorrect")
	// ErrTokenSigningFailed is an exported constant or variable used by the authentication engine.
	ErrTokenSigningFailed = errors.New("token signing failed")
	// ErrTokenExpired is an exported constant or variable used by the authentication engine.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is an exported constant or variable used by the authentication engine.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrSessionIdleTimeout is an exported constant or variable used by the authentication engine.
	ErrSessionIdleTimeout = errors.New("session idle timeout")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// UserMessage maps an engine error to text that is safe to surface to the
// end user. It never leaks internal error detail or secret material; any
// error outside the taxonomy collapses into a generic retry message.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrIdentityNotFound):
		return "No account was found for that e-mail address. Please check it and try again."
	case errors.Is(err, ErrChallengeAnswerIncorrect):
		return "That answer is not correct. Let's try a different question."
	case errors.Is(err, ErrNoPendingChallenge):
		return "Let's start over. Please tell me your e-mail address."
	case errors.Is(err, ErrSessionIdleTimeout):
		return "You were inactive for too long, so your session was closed for safety. Please log in again."
	case errors.Is(err, ErrTokenExpired), errors.Is(err, ErrTokenMalformed):
		return "Your session has expired. Please log in again."
	case errors.Is(err, ErrLookupRateLimited):
		return "Too many attempts. Please wait a moment and try again."
	default:
		return "Something went wrong on our side. Please try again in a moment."
	}
}
