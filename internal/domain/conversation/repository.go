package conversation

import "context"

// Repository stores conversation snapshots per key
type Repository interface {
	// Get returns errors.ErrNotFound for an unseen key
	Get(ctx context.Context, key string) (*Snapshot, error)

	// Put replaces the snapshot for key
	Put(ctx context.Context, key string, snapshot *Snapshot) error

	// Update runs fn on the current snapshot, or on NewSnapshot() when the key
	// is unseen, and stores the result
	Update(ctx context.Context, key string, fn func(snapshot *Snapshot) error) (*Snapshot, error)
}
