package slots

import (
	"context"
	"errors"
	"sync"

	"github.com/acadbot/chatauth"
)

// MemoryStore is an in-process [Store] for tests and single-node
// deployments. Values are copied on the way in and out, so callers can
// mutate what they hold without racing the store.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]chatauth.ConversationState
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]chatauth.ConversationState),
	}
}

// Get describes the get operation and its observable behavior.
func (s *MemoryStore) Get(_ context.Context, conversationID string) (*chatauth.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[conversationID]
	if !ok {
		return nil, ErrNotFound
	}

	copied := state
	if state.Pending != nil {
		pending := *state.Pending
		copied.Pending = &pending
	}

	return &copied, nil
}

// Put describes the put operation and its observable behavior.
func (s *MemoryStore) Put(_ context.Context, state *chatauth.ConversationState) error {
	if state == nil || state.ConversationID == "" {
		return errors.New("conversation id required")
	}

	copied := *state
	if state.Pending != nil {
		pending := *state.Pending
		copied.Pending = &pending
	}

	s.mu.Lock()
	s.states[state.ConversationID] = copied
	s.mu.Unlock()

	return nil
}

// Delete describes the delete operation and its observable behavior.
func (s *MemoryStore) Delete(_ context.Context, conversationID string) error {
	s.mu.Lock()
	delete(s.states, conversationID)
	s.mu.Unlock()

	return nil
}
