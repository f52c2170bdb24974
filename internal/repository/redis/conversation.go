package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"salesdesk/internal/domain/conversation"
	"salesdesk/pkg/errors"
)

// ConversationRepository implements conversation.Repository using Redis
type ConversationRepository struct {
	store *jsonStore[*conversation.Snapshot]
}

// NewConversationRepository creates a new snapshot repository
func NewConversationRepository(client *redis.Client, ttl time.Duration) *ConversationRepository {
	return &ConversationRepository{
		store: &jsonStore[*conversation.Snapshot]{
			client: client,
			prefix: "conversation:",
			ttl:    ttl,
			fresh:  conversation.NewSnapshot,
		},
	}
}

// Get retrieves a snapshot by conversation key
func (r *ConversationRepository) Get(ctx context.Context, key string) (*conversation.Snapshot, error) {
	return r.store.get(ctx, key)
}

// Put replaces the snapshot
func (r *ConversationRepository) Put(ctx context.Context, key string, snapshot *conversation.Snapshot) error {
	if snapshot == nil {
		return errors.NewValidationError("snapshot", "must not be nil", nil)
	}
	return r.store.put(ctx, key, snapshot)
}

// Update applies fn to the stored snapshot
func (r *ConversationRepository) Update(ctx context.Context, key string, fn func(*conversation.Snapshot) error) (*conversation.Snapshot, error) {
	return r.store.update(ctx, key, fn)
}

// Len implements metrics.Sizer
func (r *ConversationRepository) Len(ctx context.Context) (int, error) {
	return r.store.count(ctx)
}
