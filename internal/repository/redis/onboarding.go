package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"salesdesk/internal/domain/onboarding"
)

// OnboardingRepository implements onboarding.Repository using Redis
type OnboardingRepository struct {
	store *jsonStore[*onboarding.State]
}

// NewOnboardingRepository creates a new onboarding repository. Keys expire
// after ttl without writes.
func NewOnboardingRepository(client *redis.Client, ttl time.Duration) *OnboardingRepository {
	return &OnboardingRepository{
		store: &jsonStore[*onboarding.State]{
			client: client,
			prefix: "onboarding:",
			ttl:    ttl,
			fresh:  onboarding.NewState,
		},
	}
}

// Get retrieves progress by conversation key
func (r *OnboardingRepository) Get(ctx context.Context, key string) (*onboarding.State, error) {
	return r.store.get(ctx, key)
}

// Update applies fn to the stored progress
func (r *OnboardingRepository) Update(ctx context.Context, key string, fn func(*onboarding.State) error) (*onboarding.State, error) {
	return r.store.update(ctx, key, fn)
}

// Len implements metrics.Sizer
func (r *OnboardingRepository) Len(ctx context.Context) (int, error) {
	return r.store.count(ctx)
}
