package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultExpirySkew is the liveness safety margin applied when a Manager
// is configured without one.
const DefaultExpirySkew = 60 * time.Second

// Config defines a public type used by chatauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	TTL           time.Duration
	SigningSecret []byte
	Issuer        string
	ExpirySkew    time.Duration
}

// Manager defines a public type used by chatauth APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	config Config
}

// SessionClaims defines a public type used by chatauth APIs.
//
// The chatbot_auth flag marks tokens issued through the challenge-response
// flow, distinguishing them from password-login credentials of the same
// shape.
type SessionClaims struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	ChallengeAuth bool   `json:"chatbot_auth"`
	jwt.RegisteredClaims
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation, dependency calls, or security checks fail.
// NewManager does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.SigningSecret) == 0 {
		return nil, errors.New("hs256 requires signing secret")
	}
	if cfg.ExpirySkew < 0 || cfg.ExpirySkew > 5*time.Minute {
		return nil, errors.New("invalid expiry skew configuration")
	}
	if cfg.ExpirySkew == 0 {
		cfg.ExpirySkew = DefaultExpirySkew
	}

	return &Manager{config: cfg}, nil
}

// Issue describes the issue operation and its observable behavior.
//
// Issue may return an error when input validation, dependency calls, or security checks fail.
// Issue does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) Issue(userID, email, role string, challengeAuth bool) (string, error) {
	now := time.Now()

	claims := SessionClaims{
		UserID:        userID,
		Email:         email,
		Role:          role,
		ChallengeAuth: challengeAuth,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			Issuer:    m.config.Issuer,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(m.config.SigningSecret)
}

// Parse fully verifies the token signature and registered claims. The
// signing algorithm is pinned to HS256; "none" and any asymmetric
// algorithm are rejected before the key function runs.
//
// Parse may return an error when input validation, dependency calls, or security checks fail.
// Parse does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) Parse(tokenStr string) (*SessionClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.SigningSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := tok.Claims.(*SessionClaims)
	if !ok || !tok.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// Live applies the manager's configured expiry skew; see the package-level
// [Live] for the contract.
func (m *Manager) Live(tokenStr string, now time.Time) (bool, *SessionClaims) {
	return Live(tokenStr, m.config.ExpirySkew, now)
}

// Live reports whether the token is still usable based on its exp claim
// alone, WITHOUT verifying the signature. It exists for callers that do
// not hold the signing secret and only need to decide whether a
// previously issued token is worth attaching to a request; the resource
// server must still run full verification before trusting any claim.
//
// A token is treated as expired once now >= exp - skew, so a credential
// never dies mid-request. Malformed tokens, and tokens whose expiry
// cannot be read, are reported as not live rather than erroring. Claims
// are returned whenever the decode itself succeeded.
func Live(tokenStr string, skew time.Duration, now time.Time) (bool, *SessionClaims) {
	if tokenStr == "" {
		return false, nil
	}

	claims := &SessionClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return false, nil
	}
	if claims.ExpiresAt == nil {
		return false, claims
	}

	if !now.Before(claims.ExpiresAt.Time.Add(-skew)) {
		return false, claims
	}

	return true, claims
}
