package slots

import (
	"context"
	"errors"

	"github.com/acadbot/chatauth"
)

// ErrNotFound is returned when no state exists for the conversation.
var ErrNotFound = errors.New("conversation state not found")

// ErrStoreUnavailable is returned when the backing store cannot be
// reached.
var ErrStoreUnavailable = errors.New("slot store unavailable")

// Store is the persistence contract for conversation state. Get must
// return [ErrNotFound] when the conversation has no saved state;
// Delete on a missing conversation is a no-op.
type Store interface {
	Get(ctx context.Context, conversationID string) (*chatauth.ConversationState, error)
	Put(ctx context.Context, state *chatauth.ConversationState) error
	Delete(ctx context.Context, conversationID string) error
}
