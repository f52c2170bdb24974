package memory

import (
	"context"

	"salesdesk/internal/domain/onboarding"
	"salesdesk/pkg/errors"
)

// OnboardingRepository implements onboarding.Repository in process memory
type OnboardingRepository struct {
	store *Store[*onboarding.State]
}

// NewOnboardingRepository creates a new in-memory onboarding repository
func NewOnboardingRepository(policy Policy, opts ...Option) *OnboardingRepository {
	return &OnboardingRepository{
		store: NewStore(policy, onboarding.NewState, (*onboarding.State).Clone, opts...),
	}
}

// Get retrieves progress by conversation key
func (r *OnboardingRepository) Get(ctx context.Context, key string) (*onboarding.State, error) {
	state, ok := r.store.Get(key)
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "onboarding state not found for key=%s", key)
	}
	return state, nil
}

// Update applies fn to the stored progress
func (r *OnboardingRepository) Update(ctx context.Context, key string, fn func(*onboarding.State) error) (*onboarding.State, error) {
	return r.store.Update(key, fn)
}

// Len implements metrics.Sizer
func (r *OnboardingRepository) Len(ctx context.Context) (int, error) {
	return r.store.Len(), nil
}

// Sweep evicts idle and excess entries
func (r *OnboardingRepository) Sweep(ctx context.Context) (SweepResult, error) {
	return r.store.Sweep(), nil
}
