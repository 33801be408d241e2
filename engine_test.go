package chatauth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

type stubProvider struct {
	identities map[string]Identity
	err        error
	calls      int
}

func (p *stubProvider) LookupByEmail(_ context.Context, email string) (Identity, error) {
	p.calls++
	if p.err != nil {
		return Identity{}, p.err
	}

	id, ok := p.identities[email]
	if !ok {
		return Identity{}, ErrIdentityNotFound
	}
	return id, nil
}

func testSigningSecret() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

func testProvider() *stubProvider {
	return &stubProvider{
		identities: map[string]Identity{
			"ana@inst.edu": {
				UserID:     "u-100",
				Email:      "ana@inst.edu",
				FullName:   "Ana Souza",
				FullSecret: "G571AF4",
				Role:       "student",
			},
		},
	}
}

func newTestEngine(t *testing.T, mutate func(*Config), opts ...func(*Builder)) *Engine {
	t.Helper()

	cfg := defaultConfig()
	cfg.Token.SigningSecret = testSigningSecret()
	if mutate != nil {
		mutate(&cfg)
	}

	b := New().
		WithConfig(cfg).
		WithIdentityProvider(testProvider())
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine
}

func TestBeginAuthenticationIssuesChallenge(t *testing.T) {
	engine := newTestEngine(t, nil)
	state := &ConversationState{ConversationID: "c1"}

	challenge, err := engine.BeginAuthentication(context.Background(), state, "  Ana@Inst.EDU  ")
	if err != nil {
		t.Fatalf("BeginAuthentication: %v", err)
	}

	if state.Email != "ana@inst.edu" {
		t.Fatalf("email slot = %q, want normalized address", state.Email)
	}
	if state.FullSecret != "G571AF4" {
		t.Fatalf("full secret slot = %q", state.FullSecret)
	}
	if state.UserID != "u-100" {
		t.Fatalf("user id slot = %q", state.UserID)
	}
	if state.Pending == nil || *state.Pending != challenge {
		t.Fatal("pending challenge must equal the returned challenge")
	}
	if state.Authenticated {
		t.Fatal("begin must not authenticate")
	}
}

func TestBeginAuthenticationUnknownEmail(t *testing.T) {
	engine := newTestEngine(t, nil)
	state := &ConversationState{ConversationID: "c1", Email: "stale@inst.edu"}

	_, err := engine.BeginAuthentication(context.Background(), state, "nobody@inst.edu")
	if !errors.Is(err, ErrIdentityNotFound) {
		t.Fatalf("error = %v, want ErrIdentityNotFound", err)
	}
	if state.Email != "" {
		t.Fatal("email slot must be cleared so the next turn restarts cleanly")
	}
	if state.Pending != nil {
		t.Fatal("no challenge may be pending after a failed lookup")
	}
}

func TestBeginAuthenticationLookupFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("connection refused")}
	engine := newTestEngine(t, nil, func(b *Builder) {
		b.WithIdentityProvider(provider)
	})
	state := &ConversationState{ConversationID: "c1", Email: "stale@inst.edu"}

	_, err := engine.BeginAuthentication(context.Background(), state, "ana@inst.edu")
	if !errors.Is(err, ErrLookupUnavailable) {
		t.Fatalf("error = %v, want ErrLookupUnavailable", err)
	}
	if state.Email != "" {
		t.Fatal("email slot must be cleared so the next turn restarts cleanly")
	}
	if state.Pending != nil {
		t.Fatal("no challenge may be pending after a failed lookup")
	}
}

func TestSubmitChallengeAnswerSuccess(t *testing.T) {
	engine := newTestEngine(t, nil, func(b *Builder) {
		// Force a position-5 challenge: "G571AF4"[5] == 'A'.
		b.WithChallengeRand(&stubRand{floats: []float64{0.80}, ints: []int{4}})
	})
	state := &ConversationState{ConversationID: "c1"}
	ctx := context.Background()

	challenge, err := engine.BeginAuthentication(ctx, state, "ana@inst.edu")
	if err != nil {
		t.Fatalf("BeginAuthentication: %v", err)
	}
	if challenge.Kind != ChallengePosition || challenge.Parameter != 5 {
		t.Fatalf("challenge = %+v, want position 5", challenge)
	}

	result, err := engine.SubmitChallengeAnswer(ctx, state, "a")
	if err != nil {
		t.Fatalf("SubmitChallengeAnswer: %v", err)
	}

	if result.Token == "" {
		t.Fatal("expected a signed token")
	}
	if result.UserID != "u-100" || result.Email != "ana@inst.edu" || result.Role != "student" {
		t.Fatalf("unexpected result %+v", result)
	}
	if !state.Authenticated || state.Token != result.Token {
		t.Fatal("state must be authenticated with the issued token")
	}
	if state.FullSecret != "" || state.Pending != nil {
		t.Fatal("secret-bearing slots must be wiped after success")
	}
	if state.Email != "ana@inst.edu" {
		t.Fatal("email slot survives successful authentication")
	}
	if state.LastActivity.IsZero() {
		t.Fatal("idle clock must start on success")
	}

	claims, err := engine.ValidateToken(result.Token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "u-100" || !claims.ChallengeAuth {
		t.Fatalf("claims = %+v, want challenge-auth token for u-100", claims)
	}

	// The token payload must not embed any fragment of the identifier.
	parts := strings.Split(result.Token, ".")
	if len(parts) != 3 {
		t.Fatalf("token has %d segments", len(parts))
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if strings.Contains(string(payload), "G571AF4") {
		t.Fatalf("token payload carries the secret: %s", payload)
	}
}

func TestSubmitChallengeAnswerWrongAnswerRedraws(t *testing.T) {
	engine := newTestEngine(t, nil, func(b *Builder) {
		// First draw: prefix len 3. Redraw: position 2.
		b.WithChallengeRand(&stubRand{
			floats: []float64{0.10, 0.80},
			ints:   []int{1, 1},
		})
	})
	state := &ConversationState{ConversationID: "c1"}
	ctx := context.Background()

	first, err := engine.BeginAuthentication(ctx, state, "ana@inst.edu")
	if err != nil {
		t.Fatalf("BeginAuthentication: %v", err)
	}
	if first.Kind != ChallengePrefix || first.Parameter != 3 {
		t.Fatalf("challenge = %+v, want prefix 3", first)
	}

	// Lowercase fails the case-sensitive prefix rule.
	_, err = engine.SubmitChallengeAnswer(ctx, state, "g57")
	if !errors.Is(err, ErrChallengeAnswerIncorrect) {
		t.Fatalf("error = %v, want ErrChallengeAnswerIncorrect", err)
	}

	if state.Authenticated {
		t.Fatal("failed answer must not authenticate")
	}
	if state.Pending == nil {
		t.Fatal("a fresh challenge must be pending after a wrong answer")
	}
	if *state.Pending == first {
		t.Fatal("the failed challenge must not be reused")
	}
	if state.FullSecret == "" {
		t.Fatal("working secret stays for the retry")
	}

	// The redrawn challenge is position 2: "G571AF4"[2] == '5'.
	result, err := engine.SubmitChallengeAnswer(ctx, state, "5")
	if err != nil {
		t.Fatalf("retry SubmitChallengeAnswer: %v", err)
	}
	if !state.Authenticated || result.Token == "" {
		t.Fatal("retry with correct answer must authenticate")
	}
}

func TestSubmitChallengeAnswerNoPending(t *testing.T) {
	engine := newTestEngine(t, nil)

	_, err := engine.SubmitChallengeAnswer(context.Background(), &ConversationState{}, "G57")
	if !errors.Is(err, ErrNoPendingChallenge) {
		t.Fatalf("error = %v, want ErrNoPendingChallenge", err)
	}

	_, err = engine.SubmitChallengeAnswer(context.Background(), nil, "G57")
	if !errors.Is(err, ErrNoPendingChallenge) {
		t.Fatalf("nil state error = %v, want ErrNoPendingChallenge", err)
	}
}

func TestAuthenticateWithAnswer(t *testing.T) {
	engine := newTestEngine(t, nil)
	ctx := context.Background()

	result, err := engine.AuthenticateWithAnswer(ctx, "ana@inst.edu", "AF4", ChallengeSuffix, 3)
	if err != nil {
		t.Fatalf("AuthenticateWithAnswer: %v", err)
	}
	if result.Token == "" || result.UserID != "u-100" {
		t.Fatalf("unexpected result %+v", result)
	}

	_, err = engine.AuthenticateWithAnswer(ctx, "ana@inst.edu", "af4", ChallengeSuffix, 3)
	if !errors.Is(err, ErrChallengeAnswerIncorrect) {
		t.Fatalf("case-mismatched suffix error = %v, want ErrChallengeAnswerIncorrect", err)
	}

	_, err = engine.AuthenticateWithAnswer(ctx, "nobody@inst.edu", "AF4", ChallengeSuffix, 3)
	if !errors.Is(err, ErrIdentityNotFound) {
		t.Fatalf("unknown e-mail error = %v, want ErrIdentityNotFound", err)
	}
}

func TestAuthenticateVerified(t *testing.T) {
	engine := newTestEngine(t, nil)

	result, err := engine.AuthenticateVerified(context.Background(), "ana@inst.edu")
	if err != nil {
		t.Fatalf("AuthenticateVerified: %v", err)
	}

	claims, err := engine.ValidateToken(result.Token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.ChallengeAuth {
		t.Fatal("password-grade token must not carry the challenge flag")
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	engine := newTestEngine(t, nil)

	if _, err := engine.ValidateToken("not-a-token"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("error = %v, want ErrTokenMalformed", err)
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	engine := newTestEngine(t, nil)
	state := &ConversationState{ConversationID: "c1"}
	ctx := context.Background()

	if _, err := engine.BeginAuthentication(ctx, state, "ana@inst.edu"); err != nil {
		t.Fatalf("BeginAuthentication: %v", err)
	}
	// Mid-challenge logout also wipes the parked secret.
	engine.Logout(state)

	if state.Email != "" || state.FullSecret != "" || state.Pending != nil {
		t.Fatalf("logout left residue: %+v", state)
	}
	if state.Authenticated || state.Token != "" {
		t.Fatal("logout must drop authentication")
	}
}

func TestEngineNilReceivers(t *testing.T) {
	var engine *Engine

	if _, err := engine.BeginAuthentication(context.Background(), &ConversationState{}, "a@b.c"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("error = %v, want ErrEngineNotReady", err)
	}
	if _, err := engine.ValidateToken("x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("error = %v, want ErrEngineNotReady", err)
	}
	if ok, err := engine.CheckSession(&ConversationState{}, time.Now()); ok || !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("CheckSession = (%v, %v), want (false, ErrEngineNotReady)", ok, err)
	}
	engine.Logout(nil)
	engine.Close()
}

func TestBuilderSingleUse(t *testing.T) {
	cfg := defaultConfig()
	cfg.Token.SigningSecret = testSigningSecret()

	b := New().WithConfig(cfg).WithIdentityProvider(testProvider())
	if _, err := b.Build(); err != nil {
		t.Fatalf("first Build: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("second Build must fail")
	}
}

func TestBuilderValidation(t *testing.T) {
	t.Run("missing provider", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Token.SigningSecret = testSigningSecret()

		if _, err := New().WithConfig(cfg).Build(); err == nil {
			t.Fatal("Build without identity provider must fail")
		}
	})

	t.Run("short signing secret", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Token.SigningSecret = []byte("short")

		if _, err := New().WithConfig(cfg).WithIdentityProvider(testProvider()).Build(); err == nil {
			t.Fatal("Build with short signing secret must fail")
		}
	})

	t.Run("throttle without redis", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Token.SigningSecret = testSigningSecret()
		cfg.Security.EnableLookupThrottle = true

		if _, err := New().WithConfig(cfg).WithIdentityProvider(testProvider()).Build(); err == nil {
			t.Fatal("Build with throttle and no redis must fail")
		}
	})
}

func TestMetricsCountFlow(t *testing.T) {
	engine := newTestEngine(t, nil)
	ctx := context.Background()
	state := &ConversationState{ConversationID: "c1"}

	if _, err := engine.BeginAuthentication(ctx, state, "nobody@inst.edu"); err == nil {
		t.Fatal("expected lookup failure")
	}
	if _, err := engine.BeginAuthentication(ctx, state, "ana@inst.edu"); err != nil {
		t.Fatalf("BeginAuthentication: %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricLookupNotFound] != 1 {
		t.Fatalf("lookup-not-found count = %d, want 1", snap.Counters[MetricLookupNotFound])
	}
	if snap.Counters[MetricLookupSuccess] != 1 {
		t.Fatalf("lookup-success count = %d, want 1", snap.Counters[MetricLookupSuccess])
	}
	if snap.Counters[MetricChallengeIssued] != 1 {
		t.Fatalf("challenge-issued count = %d, want 1", snap.Counters[MetricChallengeIssued])
	}
}

func TestUserMessageNeverLeaksInternals(t *testing.T) {
	internal := fmt.Errorf("dial tcp 10.0.0.8:5432: %w", errors.New("connection refused"))

	msg := UserMessage(internal)
	if msg == "" {
		t.Fatal("every error maps to some user text")
	}
	if msg == internal.Error() {
		t.Fatal("internal error text must not surface")
	}
}
