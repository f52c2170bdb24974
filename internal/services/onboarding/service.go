package onboarding

import (
	"context"
	"time"

	"salesdesk/internal/domain/conversation"
	"salesdesk/internal/domain/onboarding"
	"salesdesk/internal/metrics"
	"salesdesk/pkg/errors"
	"salesdesk/pkg/logger"
)

// CacheWriter mirrors progress into the conversation cache (write-through)
type CacheWriter interface {
	WriteOnboarding(ctx context.Context, conversationKey string, state *onboarding.State) error
}

// EventPublisher interface for publishing progress events (DI for testability)
type EventPublisher interface {
	PublishStepCompleted(ctx context.Context, conversationKey, step string, completed []string, next string) error
	PublishOnboardingCompleted(ctx context.Context, conversationKey string, instructionsProvided bool) error
}

// Progress is the stored state plus the step the flow should resume at
type Progress struct {
	*onboarding.State
	NextStep *onboarding.Step `json:"next_step"`
}

// NewProgress derives the resume point from state
func NewProgress(state *onboarding.State) Progress {
	p := Progress{State: state}
	if next, ok := NextStep(state); ok {
		p.NextStep = &next
	}
	return p
}

// NextStep returns the first canonical step absent from the completed steps;
// false means the flow is complete
func NextStep(state *onboarding.State) (onboarding.Step, bool) {
	if state == nil {
		return onboarding.Steps[0], true
	}
	return state.NextStep()
}

// Service tracks onboarding progress per conversation
type Service struct {
	repo      onboarding.Repository
	cache     CacheWriter
	publisher EventPublisher
	now       func() time.Time
	log       *logger.Logger
}

// NewService creates a new onboarding progress service
func NewService(repo onboarding.Repository, cache CacheWriter, publisher EventPublisher, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		now:       time.Now,
		log:       log.With("service", "onboarding"),
	}
}

// Get returns the stored progress, or the default empty state for an unseen key
func (s *Service) Get(ctx context.Context, conversationKey string) (*onboarding.State, error) {
	key, err := conversation.ParseKey(conversationKey)
	if err != nil {
		return nil, err
	}

	state, err := s.repo.Get(ctx, string(key))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			s.log.Debugw("Onboarding state not found, using default",
				"conversation_key", key,
			)
			return onboarding.NewState(), nil
		}
		s.log.Errorw("Failed to get onboarding state",
			"conversation_key", key,
			"error", err,
		)
		return nil, err
	}

	return state, nil
}

// MergeUpdate merges fields into the stored progress, last write wins per
// field. A non-empty stepName is appended to the completed steps unless it is
// already there.
func (s *Service) MergeUpdate(ctx context.Context, conversationKey string, stepName string, fields onboarding.Fields) (*onboarding.State, error) {
	key, err := conversation.ParseKey(conversationKey)
	if err != nil {
		return nil, err
	}

	var step onboarding.Step
	if stepName != "" {
		if step, err = onboarding.ParseStep(stepName); err != nil {
			return nil, err
		}
	}

	fields, err = fields.Normalize()
	if err != nil {
		return nil, err
	}

	var appended, completed bool
	state, err := s.repo.Update(ctx, string(key), func(state *onboarding.State) error {
		wasComplete := state.IsComplete()
		if step != "" {
			appended = state.CompleteStep(step)
		}
		state.Apply(fields)
		state.UpdatedAt = s.now().UTC()
		completed = !wasComplete && state.IsComplete()
		return nil
	})
	if err != nil {
		s.log.Errorw("Failed to merge onboarding state",
			"conversation_key", key,
			"step", step,
			"error", err,
		)
		return nil, err
	}

	s.log.Infow("Onboarding state merged",
		"conversation_key", key,
		"step", step,
		"step_appended", appended,
		"completed_steps", state.CompletedSteps,
	)

	s.afterWrite(ctx, key, state, step, appended, completed)
	return state, nil
}

// MarkComplete sets onboarding_complete. Whether instructions were provided
// first is the caller's concern; it is only logged here.
func (s *Service) MarkComplete(ctx context.Context, conversationKey string) (*onboarding.State, error) {
	key, err := conversation.ParseKey(conversationKey)
	if err != nil {
		return nil, err
	}

	var completed bool
	state, err := s.repo.Update(ctx, string(key), func(state *onboarding.State) error {
		completed = !state.IsComplete()
		done := true
		state.OnboardingComplete = &done
		state.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		s.log.Errorw("Failed to mark onboarding complete",
			"conversation_key", key,
			"error", err,
		)
		return nil, err
	}

	if !state.InstructionsGiven() {
		s.log.Warnw("Onboarding marked complete before instructions were provided",
			"conversation_key", key,
		)
	}

	s.afterWrite(ctx, key, state, "", false, completed)
	return state, nil
}

func (s *Service) afterWrite(ctx context.Context, key conversation.Key, state *onboarding.State, step onboarding.Step, appended, completed bool) {
	if s.cache != nil {
		if err := s.cache.WriteOnboarding(ctx, string(key), state); err != nil {
			s.log.Errorw("Failed to mirror onboarding state into conversation cache",
				"conversation_key", key,
				"error", err,
			)
		}
	}

	if appended {
		metrics.OnboardingSteps.WithLabelValues(string(step)).Inc()
		s.publishStep(ctx, key, state, step)
	}
	if completed {
		metrics.OnboardingCompleted.Inc()
		if s.publisher != nil {
			if err := s.publisher.PublishOnboardingCompleted(ctx, string(key), state.InstructionsGiven()); err != nil {
				s.log.Warnw("Failed to publish onboarding completion",
					"conversation_key", key,
					"error", err,
				)
			}
		}
	}
}

func (s *Service) publishStep(ctx context.Context, key conversation.Key, state *onboarding.State, step onboarding.Step) {
	if s.publisher == nil {
		return
	}

	completed := make([]string, len(state.CompletedSteps))
	for i, done := range state.CompletedSteps {
		completed[i] = string(done)
	}
	next, _ := NextStep(state)

	if err := s.publisher.PublishStepCompleted(ctx, string(key), string(step), completed, string(next)); err != nil {
		s.log.Warnw("Failed to publish step completion",
			"conversation_key", key,
			"step", step,
			"error", err,
		)
	}
}
