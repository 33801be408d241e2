package chatauth

import (
	"context"
	"fmt"
	"time"
)

// ChallengeKind defines a public type used by chatauth APIs.
//
// ChallengeKind instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ChallengeKind string

const (
	// ChallengePrefix asks for the first N characters of the identifier.
	ChallengePrefix ChallengeKind = "prefix"
	// ChallengeSuffix asks for the last N characters of the identifier.
	ChallengeSuffix ChallengeKind = "suffix"
	// ChallengePosition asks for the single character at a 1-indexed position.
	ChallengePosition ChallengeKind = "position"
	// ChallengeFull asks for the complete identifier. Drawn rarely because it
	// discloses the entire secret in one answer.
	ChallengeFull ChallengeKind = "full"
)

// Challenge is one randomly drawn question about the user's identifier.
// It is immutable and discarded after a single verification attempt;
// success or failure always regenerates a new one.
type Challenge struct {
	Kind      ChallengeKind `json:"kind"`
	Parameter int           `json:"parameter,omitempty"`
}

// Prompt renders the challenge as user-facing natural language text.
// The text never contains any fragment of the secret itself.
func (c Challenge) Prompt() string {
	switch c.Kind {
	case ChallengePrefix:
		if c.Parameter == 1 {
			return "What is the first character of your identifier?"
		}
		return fmt.Sprintf("What are the first %d characters of your identifier?", c.Parameter)
	case ChallengeSuffix:
		if c.Parameter == 1 {
			return "What is the last character of your identifier?"
		}
		return fmt.Sprintf("What are the last %d characters of your identifier?", c.Parameter)
	case ChallengePosition:
		return fmt.Sprintf("What is the %s character of your identifier?", ordinal(c.Parameter))
	case ChallengeFull:
		return "Please confirm your full identifier."
	default:
		return "Please confirm your identifier."
	}
}

func ordinal(n int) string {
	switch n % 100 {
	case 11, 12, 13:
		return fmt.Sprintf("%dth", n)
	}
	switch n % 10 {
	case 1:
		return fmt.Sprintf("%dst", n)
	case 2:
		return fmt.Sprintf("%dnd", n)
	case 3:
		return fmt.Sprintf("%drd", n)
	default:
		return fmt.Sprintf("%dth", n)
	}
}

// Identity is the record the external store resolves for an e-mail
// address. The engine only ever reads it; the full secret is compared in
// fragments and never echoed back to the user.
type Identity struct {
	UserID     string
	Email      string
	FullName   string
	FullSecret string
	Role       string
}

// IdentityProvider is the interface callers implement to connect chatauth
// to their record store. LookupByEmail must return [ErrIdentityNotFound]
// (possibly wrapped) when no record exists for the address; any other
// error is treated as a transient lookup failure.
type IdentityProvider interface {
	LookupByEmail(ctx context.Context, email string) (Identity, error)
}

// ConversationState defines a public type used by chatauth APIs.
//
// It is the per-conversation slot set the orchestrator operates on. The
// caller owns its persistence across turns (see the slots package) and
// must process a given conversation's turns sequentially; the engine
// never shares one state value between requests.
type ConversationState struct {
	ConversationID string     `json:"conversation_id,omitempty"`
	Email          string     `json:"email,omitempty"`
	FullSecret     string     `json:"full_secret,omitempty"`
	UserID         string     `json:"user_id,omitempty"`
	Role           string     `json:"role,omitempty"`
	Pending        *Challenge `json:"pending_challenge,omitempty"`
	Authenticated  bool       `json:"authenticated"`
	Token          string     `json:"token,omitempty"`
	LastActivity   time.Time  `json:"last_activity,omitzero"`
}

// clearSecrets drops secret-bearing working slots once an authentication
// attempt concludes, to minimize the exposure window.
func (s *ConversationState) clearSecrets() {
	s.FullSecret = ""
	s.Pending = nil
}

// clearAll resets the state to its conversation-start shape. Used on
// explicit logout and forced logout.
func (s *ConversationState) clearAll() {
	s.Email = ""
	s.FullSecret = ""
	s.UserID = ""
	s.Role = ""
	s.Pending = nil
	s.Authenticated = false
	s.Token = ""
	s.LastActivity = time.Time{}
}

// AuthResult is returned by [Engine.SubmitChallengeAnswer],
// [Engine.AuthenticateWithAnswer] and [Engine.IssueToken] on success.
type AuthResult struct {
	Token  string
	UserID string
	Email  string
	Name   string
	Role   string
}
