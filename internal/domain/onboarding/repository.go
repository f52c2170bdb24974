package onboarding

import "context"

// Repository stores onboarding progress per conversation key
type Repository interface {
	// Get returns errors.ErrNotFound for an unseen key
	Get(ctx context.Context, key string) (*State, error)

	// Update runs fn on the current state, or on NewState() when the key is
	// unseen, and stores the result. fn must not retain the pointer.
	Update(ctx context.Context, key string, fn func(state *State) error) (*State, error)
}
