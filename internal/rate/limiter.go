package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds lookup throttle tuning parameters.
type Config struct {
	EnableIPThrottle bool
	MaxAttempts      int
	Cooldown         time.Duration
}

// Limiter enforces per-e-mail and per-IP budgets for identity lookups
// using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLookup checks whether the e-mail+IP pair is within the lookup
// attempt budget. Returns an error if rate-limited.
func (l *Limiter) CheckLookup(ctx context.Context, email, ip string) error {
	if err := l.checkCounter(ctx, lookupEmailKey(email), l.config.MaxAttempts); err != nil {
		return err
	}

	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, lookupIPKey(ip), l.config.MaxAttempts); err != nil {
			return err
		}
	}

	return nil
}

// IncrementLookup records a failed lookup attempt for the e-mail+IP pair.
func (l *Limiter) IncrementLookup(ctx context.Context, email, ip string) error {
	count, err := l.incrementWithTTL(ctx, lookupEmailKey(email), l.config.Cooldown)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, lookupIPKey(ip), l.config.Cooldown)
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxAttempts) {
			return ErrRateLimited
		}
	}

	return nil
}

// ResetLookup clears the counters for the e-mail+IP pair. Called after a
// successful authentication.
func (l *Limiter) ResetLookup(ctx context.Context, email, ip string) error {
	keys := []string{lookupEmailKey(email)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, lookupIPKey(ip))
	}

	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count > int64(maxAttempts) {
		return ErrRateLimited
	}

	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func lookupEmailKey(email string) string {
	return "cle:" + email
}

func lookupIPKey(ip string) string {
	return "cli:" + ip
}
