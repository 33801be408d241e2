// Command chatauthd serves the chatbot authentication API: identity
// lookup, partial-secret challenge verification and token issuance.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/acadbot/chatauth"
	"github.com/acadbot/chatauth/httpapi"
	"github.com/acadbot/chatauth/lookup"
)

type serverConfig struct {
	ListenAddr    string        `env:"CHATAUTH_LISTEN_ADDR" envDefault:":8085"`
	SigningSecret string        `env:"CHATAUTH_SIGNING_SECRET,required"`
	TokenTTL      time.Duration `env:"CHATAUTH_TOKEN_TTL" envDefault:"24h"`
	TokenIssuer   string        `env:"CHATAUTH_TOKEN_ISSUER" envDefault:"chatauth"`
	IdleTimeout   time.Duration `env:"CHATAUTH_IDLE_TIMEOUT" envDefault:"10m"`

	LookupBaseURL string        `env:"CHATAUTH_LOOKUP_URL,required"`
	LookupAPIKey  string        `env:"CHATAUTH_LOOKUP_API_KEY"`
	LookupTimeout time.Duration `env:"CHATAUTH_LOOKUP_TIMEOUT" envDefault:"5s"`

	RedisAddr     string `env:"CHATAUTH_REDIS_ADDR"`
	RedisPassword string `env:"CHATAUTH_REDIS_PASSWORD"`

	ThrottleEnabled  bool          `env:"CHATAUTH_THROTTLE_ENABLED" envDefault:"false"`
	ThrottleAttempts int           `env:"CHATAUTH_THROTTLE_ATTEMPTS" envDefault:"10"`
	ThrottleCooldown time.Duration `env:"CHATAUTH_THROTTLE_COOLDOWN" envDefault:"15m"`

	ShutdownTimeout time.Duration `env:"CHATAUTH_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chatauthd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Missing .env is fine; real deployments inject the environment.
	_ = godotenv.Load()

	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	engineCfg := chatauth.DefaultConfig()
	engineCfg.Token.SigningSecret = []byte(cfg.SigningSecret)
	engineCfg.Token.TTL = cfg.TokenTTL
	engineCfg.Token.Issuer = cfg.TokenIssuer
	engineCfg.Session.IdleTimeout = cfg.IdleTimeout
	engineCfg.Lookup.Timeout = cfg.LookupTimeout
	engineCfg.Security.EnableLookupThrottle = cfg.ThrottleEnabled
	engineCfg.Security.MaxLookupAttempts = cfg.ThrottleAttempts
	engineCfg.Security.LookupCooldown = cfg.ThrottleCooldown
	engineCfg.Audit.Enabled = true

	var clientOpts []lookup.Option
	if cfg.LookupAPIKey != "" {
		clientOpts = append(clientOpts, lookup.WithAPIKey(cfg.LookupAPIKey))
	}
	records := lookup.NewClient(cfg.LookupBaseURL, clientOpts...)

	builder := chatauth.New().
		WithConfig(engineCfg).
		WithIdentityProvider(records).
		WithAuditSink(chatauth.NewJSONWriterSink(os.Stdout))

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()
		builder = builder.WithRedis(redisClient)
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	handler := httpapi.NewHandler(engine, records)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("chatauthd listening on %s\n", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		fmt.Printf("received %s, shutting down\n", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	return server.Shutdown(ctx)
}
