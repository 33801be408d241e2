package chatauth

import (
	"testing"
	"time"
)

func validConfig() Config {
	cfg := defaultConfig()
	cfg.Token.SigningSecret = testSigningSecret()
	return cfg
}

func TestDefaultConfigValidatesWithSecret(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Token.TTL != 24*time.Hour {
		t.Fatalf("token TTL = %v, want 24h", cfg.Token.TTL)
	}
	if cfg.Token.ExpirySkew != 60*time.Second {
		t.Fatalf("expiry skew = %v, want 60s", cfg.Token.ExpirySkew)
	}
	if cfg.Session.IdleTimeout != 10*time.Minute {
		t.Fatalf("idle timeout = %v, want 10m", cfg.Session.IdleTimeout)
	}

	sum := cfg.Challenge.PrefixWeight + cfg.Challenge.SuffixWeight +
		cfg.Challenge.PositionWeight + cfg.Challenge.FullWeight
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("challenge weights sum = %v, want 1.0", sum)
	}
	if cfg.Challenge.MinFragment != 2 || cfg.Challenge.MaxFragment != 4 {
		t.Fatalf("fragment range = [%d,%d], want [2,4]", cfg.Challenge.MinFragment, cfg.Challenge.MaxFragment)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero TTL", func(c *Config) { c.Token.TTL = 0 }},
		{"short secret", func(c *Config) { c.Token.SigningSecret = []byte("short") }},
		{"negative skew", func(c *Config) { c.Token.ExpirySkew = -time.Second }},
		{"oversized skew", func(c *Config) { c.Token.ExpirySkew = 10 * time.Minute }},
		{"skew beyond TTL", func(c *Config) {
			c.Token.TTL = 30 * time.Second
			c.Token.ExpirySkew = 30 * time.Second
		}},
		{"zero idle timeout", func(c *Config) { c.Session.IdleTimeout = 0 }},
		{"negative weight", func(c *Config) { c.Challenge.PrefixWeight = -0.1 }},
		{"all-zero weights", func(c *Config) {
			c.Challenge.PrefixWeight = 0
			c.Challenge.SuffixWeight = 0
			c.Challenge.PositionWeight = 0
			c.Challenge.FullWeight = 0
		}},
		{"zero min fragment", func(c *Config) { c.Challenge.MinFragment = 0 }},
		{"inverted fragment range", func(c *Config) {
			c.Challenge.MinFragment = 5
			c.Challenge.MaxFragment = 3
		}},
		{"zero lookup timeout", func(c *Config) { c.Lookup.Timeout = 0 }},
		{"empty default role", func(c *Config) { c.Lookup.DefaultRole = "" }},
		{"throttle without attempts", func(c *Config) {
			c.Security.EnableLookupThrottle = true
			c.Security.MaxLookupAttempts = 0
		}},
		{"audit without buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("Validate accepted an invalid config")
			}
		})
	}
}

func TestCloneConfigDetachesSecret(t *testing.T) {
	cfg := validConfig()
	clone := cloneConfig(cfg)

	clone.Token.SigningSecret[0] ^= 0xFF
	if cfg.Token.SigningSecret[0] == clone.Token.SigningSecret[0] {
		t.Fatal("clone must not share the signing secret backing array")
	}
}
