package slots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acadbot/chatauth"
)

const defaultStateTTL = 24 * time.Hour

// RedisStore keeps conversation state as JSON blobs in Redis, one key
// per conversation, with a TTL so abandoned conversations age out.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a [RedisStore]. prefix namespaces the keys;
// ttl <= 0 falls back to 24h.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "cas:"
	}
	if ttl <= 0 {
		ttl = defaultStateTTL
	}

	return &RedisStore{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get describes the get operation and its observable behavior.
//
// Get may return an error when input validation, dependency calls, or security checks fail.
// Get does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) Get(ctx context.Context, conversationID string) (*chatauth.ConversationState, error) {
	data, err := s.redis.Get(ctx, s.key(conversationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var state chatauth.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		// Corrupt blob; treat as absent so the conversation restarts.
		return nil, ErrNotFound
	}
	state.ConversationID = conversationID

	return &state, nil
}

// Put describes the put operation and its observable behavior.
//
// Put may return an error when input validation, dependency calls, or security checks fail.
// Put does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) Put(ctx context.Context, state *chatauth.ConversationState) error {
	if state == nil || state.ConversationID == "" {
		return errors.New("conversation id required")
	}

	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(state.ConversationID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// Delete describes the delete operation and its observable behavior.
//
// Delete may return an error when input validation, dependency calls, or security checks fail.
// Delete does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) Delete(ctx context.Context, conversationID string) error {
	if err := s.redis.Del(ctx, s.key(conversationID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

func (s *RedisStore) key(conversationID string) string {
	return s.prefix + conversationID
}
