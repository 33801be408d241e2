package chatauth

import (
	"errors"
	"time"
)

// Config defines a public type used by chatauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Token     TokenConfig
	Session   SessionConfig
	Challenge ChallengeConfig
	Lookup    LookupConfig
	Security  SecurityConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by chatauth APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	// TTL is the token's absolute lifetime from issuance.
	TTL time.Duration
	// SigningSecret is the HMAC-SHA256 key. The algorithm is fixed;
	// unsigned tokens are never accepted.
	SigningSecret []byte
	Issuer        string
	// ExpirySkew is the safety margin applied by liveness checks: a token
	// is treated as expired once now >= exp - ExpirySkew.
	ExpirySkew time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by chatauth APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	// IdleTimeout is the sliding inactivity window checked before every
	// protected operation. Any authenticated turn resets the clock; it is
	// independent of the token's absolute TTL.
	IdleTimeout time.Duration
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// ChallengeConfig defines a public type used by chatauth APIs.
//
// ChallengeConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ChallengeConfig struct {
	PrefixWeight   float64
	SuffixWeight   float64
	PositionWeight float64
	// FullWeight should stay small: a full challenge requires disclosing
	// the entire secret in a single answer.
	FullWeight float64

	MinFragment int
	MaxFragment int
}

/*
====================================
LOOKUP CONFIG
====================================
*/

// LookupConfig defines a public type used by chatauth APIs.
//
// LookupConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LookupConfig struct {
	// Timeout bounds the single identity-lookup round trip.
	Timeout time.Duration
	// DefaultRole is claimed when the record store returns no role.
	DefaultRole string
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig defines a public type used by chatauth APIs.
//
// SecurityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityConfig struct {
	// EnableLookupThrottle rate-limits identity lookups per e-mail (and
	// per IP when EnableIPThrottle is set) using Redis counters. It never
	// bounds the challenge retry loop inside a conversation.
	EnableLookupThrottle bool
	EnableIPThrottle     bool
	MaxLookupAttempts    int
	LookupCooldown       time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by chatauth APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by chatauth APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the baseline configuration. Callers adjust the
// fields they care about and pass the result to [Builder.WithConfig];
// the signing secret always has to be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:        24 * time.Hour,
			ExpirySkew: 60 * time.Second,
		},
		Session: SessionConfig{
			IdleTimeout: 10 * time.Minute,
		},
		Challenge: ChallengeConfig{
			PrefixWeight:   0.30,
			SuffixWeight:   0.30,
			PositionWeight: 0.35,
			FullWeight:     0.05,
			MinFragment:    2,
			MaxFragment:    4,
		},
		Lookup: LookupConfig{
			Timeout:     5 * time.Second,
			DefaultRole: "student",
		},
		Security: SecurityConfig{
			EnableLookupThrottle: false,
			EnableIPThrottle:     false,
			MaxLookupAttempts:    10,
			LookupCooldown:       15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.SigningSecret = cloneBytes(cfg.Token.SigningSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Token
	if c.Token.TTL <= 0 {
		return errors.New("Token TTL must be > 0")
	}
	if len(c.Token.SigningSecret) < 32 {
		return errors.New("Token SigningSecret must be at least 32 bytes")
	}
	if c.Token.ExpirySkew < 0 || c.Token.ExpirySkew > 5*time.Minute {
		return errors.New("Token ExpirySkew must be within [0, 5m]")
	}
	if c.Token.ExpirySkew >= c.Token.TTL {
		return errors.New("Token ExpirySkew must be smaller than TTL")
	}

	// Session
	if c.Session.IdleTimeout <= 0 {
		return errors.New("Session IdleTimeout must be > 0")
	}

	// Challenge
	weights := []float64{
		c.Challenge.PrefixWeight,
		c.Challenge.SuffixWeight,
		c.Challenge.PositionWeight,
		c.Challenge.FullWeight,
	}
	total := 0.0
	for _, w := range weights {
		if w < 0 {
			return errors.New("Challenge weights must be >= 0")
		}
		total += w
	}
	if total <= 0 {
		return errors.New("Challenge weights must not all be zero")
	}
	if c.Challenge.MinFragment < 1 {
		return errors.New("Challenge MinFragment must be >= 1")
	}
	if c.Challenge.MaxFragment < c.Challenge.MinFragment {
		return errors.New("Challenge MaxFragment must be >= MinFragment")
	}

	// Lookup
	if c.Lookup.Timeout <= 0 {
		return errors.New("Lookup Timeout must be > 0")
	}
	if c.Lookup.DefaultRole == "" {
		return errors.New("Lookup DefaultRole is required")
	}

	// Security
	if c.Security.EnableLookupThrottle {
		if c.Security.MaxLookupAttempts <= 0 {
			return errors.New("MaxLookupAttempts must be > 0 when lookup throttle is enabled")
		}
		if c.Security.LookupCooldown <= 0 {
			return errors.New("LookupCooldown must be > 0 when lookup throttle is enabled")
		}
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	return nil
}
