package memory

import (
	"context"

	"salesdesk/internal/domain/conversation"
	"salesdesk/pkg/errors"
)

// ConversationRepository implements conversation.Repository in process memory
type ConversationRepository struct {
	store *Store[*conversation.Snapshot]
}

// NewConversationRepository creates a new in-memory snapshot repository
func NewConversationRepository(policy Policy, opts ...Option) *ConversationRepository {
	return &ConversationRepository{
		store: NewStore(policy, conversation.NewSnapshot, (*conversation.Snapshot).Clone, opts...),
	}
}

// Get retrieves a snapshot by conversation key
func (r *ConversationRepository) Get(ctx context.Context, key string) (*conversation.Snapshot, error) {
	snapshot, ok := r.store.Get(key)
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "conversation snapshot not found for key=%s", key)
	}
	return snapshot, nil
}

// Put replaces the snapshot
func (r *ConversationRepository) Put(ctx context.Context, key string, snapshot *conversation.Snapshot) error {
	if snapshot == nil {
		return errors.NewValidationError("snapshot", "must not be nil", nil)
	}
	r.store.Put(key, snapshot)
	return nil
}

// Update applies fn to the stored snapshot
func (r *ConversationRepository) Update(ctx context.Context, key string, fn func(*conversation.Snapshot) error) (*conversation.Snapshot, error) {
	return r.store.Update(key, fn)
}

// Len implements metrics.Sizer
func (r *ConversationRepository) Len(ctx context.Context) (int, error) {
	return r.store.Len(), nil
}

// Sweep evicts idle and excess entries
func (r *ConversationRepository) Sweep(ctx context.Context) (SweepResult, error) {
	return r.store.Sweep(), nil
}
