package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdesk/internal/domain/conversation"
	"salesdesk/internal/domain/onboarding"
	"salesdesk/internal/testsupport"
	"salesdesk/pkg/errors"
)

func TestOnboardingRepository(t *testing.T) {
	client := testsupport.NewRedisClient(t, testsupport.LoadRedisConfigFromEnv(t))
	repo := NewOnboardingRepository(client, time.Hour)
	ctx := context.Background()

	_, err := repo.Get(ctx, "unseen")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	amount := decimal.RequireFromString("1000.25")
	state, err := repo.Update(ctx, "k", func(s *onboarding.State) error {
		s.CompleteStep(onboarding.StepBudgetCheck)
		s.Apply(onboarding.Fields{BudgetAmount: &amount})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []onboarding.Step{onboarding.StepBudgetCheck}, state.CompletedSteps)

	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, amount.Equal(*got.BudgetAmount))

	ttl, err := client.TTL(ctx, "onboarding:k").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	n, err := repo.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOnboardingRepositoryConcurrentUpdates(t *testing.T) {
	client := testsupport.NewRedisClient(t, testsupport.LoadRedisConfigFromEnv(t))
	repo := NewOnboardingRepository(client, time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, step := range []onboarding.Step{onboarding.StepTradingExperience, onboarding.StepBotRecommendation} {
		wg.Add(1)
		go func(step onboarding.Step) {
			defer wg.Done()
			_, err := repo.Update(ctx, "k", func(s *onboarding.State) error {
				s.CompleteStep(step)
				return nil
			})
			assert.NoError(t, err)
		}(step)
	}
	wg.Wait()

	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Len(t, got.CompletedSteps, 2)
}

func TestConversationRepository(t *testing.T) {
	client := testsupport.NewRedisClient(t, testsupport.LoadRedisConfigFromEnv(t))
	repo := NewConversationRepository(client, time.Hour)
	ctx := context.Background()

	snap := conversation.NewSnapshot()
	snap.Lead = conversation.LeadInfo{FirstName: "Dana", Country: "Canada"}
	require.NoError(t, repo.Put(ctx, "k", snap))

	updated, err := repo.Update(ctx, "k", func(s *conversation.Snapshot) error {
		s.Lead.Email = "dana@example.com"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Canada", updated.Lead.Country)
	assert.Equal(t, "dana@example.com", updated.Lead.Email)

	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, updated.Lead, got.Lead)
}

func TestTransportErrorsAreUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	onboardingRepo := NewOnboardingRepository(client, time.Hour)
	conversationRepo := NewConversationRepository(client, time.Hour)

	t.Run("get", func(t *testing.T) {
		_, err := onboardingRepo.Get(ctx, "k")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrUnavailable))
		assert.False(t, errors.Is(err, errors.ErrNotFound))
	})

	t.Run("update", func(t *testing.T) {
		_, err := onboardingRepo.Update(ctx, "k", func(*onboarding.State) error { return nil })
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrUnavailable))
	})

	t.Run("put", func(t *testing.T) {
		err := conversationRepo.Put(ctx, "k", &conversation.Snapshot{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrUnavailable))
	})

	t.Run("count", func(t *testing.T) {
		_, err := conversationRepo.Len(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrUnavailable))
	})
}
