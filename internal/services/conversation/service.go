package conversation

import (
	"context"
	"time"

	"salesdesk/internal/domain/conversation"
	"salesdesk/internal/domain/onboarding"
	"salesdesk/internal/metrics"
	"salesdesk/pkg/errors"
	"salesdesk/pkg/logger"
)

// LeadPublisher interface for publishing lead changes (DI for testability)
type LeadPublisher interface {
	PublishLeadUpdated(ctx context.Context, conversationKey string, changed []string, newLead bool) error
}

// Service is the side-channel cache that re-seeds a recreated conversation
// context with previously captured lead and progress data
type Service struct {
	repo      conversation.Repository
	publisher LeadPublisher
	now       func() time.Time
	log       *logger.Logger
}

// NewService creates a new conversation cache service
func NewService(repo conversation.Repository, publisher LeadPublisher, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
		log:       log.With("service", "conversation"),
	}
}

// Read returns the cached snapshot; found is false for an unseen key
func (s *Service) Read(ctx context.Context, conversationKey string) (*conversation.Snapshot, bool, error) {
	key, err := conversation.ParseKey(conversationKey)
	if err != nil {
		return nil, false, err
	}

	snapshot, err := s.repo.Get(ctx, string(key))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, false, nil
		}
		s.log.Errorw("Failed to read conversation snapshot",
			"conversation_key", key,
			"error", err,
		)
		return nil, false, err
	}

	return snapshot, true, nil
}

// Write replaces the snapshot, last write wins
func (s *Service) Write(ctx context.Context, conversationKey string, lead conversation.LeadInfo, state *onboarding.State) error {
	key, err := conversation.ParseKey(conversationKey)
	if err != nil {
		return err
	}

	if state == nil {
		state = onboarding.NewState()
	}
	snapshot := &conversation.Snapshot{
		Lead:       lead,
		Onboarding: state.Clone(),
		UpdatedAt:  s.now().UTC(),
	}

	if err := s.repo.Put(ctx, string(key), snapshot); err != nil {
		s.log.Errorw("Failed to write conversation snapshot",
			"conversation_key", key,
			"error", err,
		)
		return err
	}

	s.log.Debugw("Conversation snapshot written",
		"conversation_key", key,
	)
	return nil
}

// WriteOnboarding replaces the onboarding part of the snapshot, keeping the lead
func (s *Service) WriteOnboarding(ctx context.Context, conversationKey string, state *onboarding.State) error {
	key, err := conversation.ParseKey(conversationKey)
	if err != nil {
		return err
	}

	_, err = s.repo.Update(ctx, string(key), func(snapshot *conversation.Snapshot) error {
		snapshot.Onboarding = state.Clone()
		snapshot.UpdatedAt = s.now().UTC()
		return nil
	})
	return err
}

// UpdateLead merges trimmed, non-empty lead fields into the snapshot
func (s *Service) UpdateLead(ctx context.Context, conversationKey string, fields conversation.LeadFields) (*conversation.Snapshot, error) {
	key, err := conversation.ParseKey(conversationKey)
	if err != nil {
		return nil, err
	}

	var changed []string
	snapshot, err := s.repo.Update(ctx, string(key), func(snapshot *conversation.Snapshot) error {
		changed = snapshot.Lead.Apply(fields)
		snapshot.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		s.log.Errorw("Failed to update lead info",
			"conversation_key", key,
			"error", err,
		)
		return nil, err
	}

	if len(changed) == 0 {
		return snapshot, nil
	}

	s.log.Infow("Lead info updated",
		"conversation_key", key,
		"changed", changed,
	)

	if s.publisher != nil {
		if err := s.publisher.PublishLeadUpdated(ctx, string(key), changed, snapshot.Lead.NewLead); err != nil {
			s.log.Warnw("Failed to publish lead update",
				"conversation_key", key,
				"error", err,
			)
		}
	}

	return snapshot, nil
}

// Restore copies cached data into a freshly (re)created context. Lead fields
// are only filled where missing. Onboarding is copied when the fresh one is
// empty, otherwise cached values win. Fresh completed steps are canonicalized
// first. Reports whether a snapshot was found.
func (s *Service) Restore(ctx context.Context, c *conversation.Context) (bool, error) {
	if c == nil {
		return false, errors.NewValidationError("context", "must not be nil", nil)
	}
	if c.Onboarding != nil {
		if err := c.Onboarding.NormalizeSteps(); err != nil {
			metrics.ContextRestores.WithLabelValues("error").Inc()
			return false, err
		}
	}

	snapshot, found, err := s.Read(ctx, c.ConversationKey)
	if err != nil {
		metrics.ContextRestores.WithLabelValues("error").Inc()
		return false, err
	}

	if c.Onboarding == nil {
		c.Onboarding = onboarding.NewState()
	}

	if !found {
		metrics.ContextRestores.WithLabelValues("miss").Inc()
		return false, nil
	}

	filled := c.Lead.FillMissing(snapshot.Lead)

	outcome := "merged"
	switch {
	case snapshot.Onboarding == nil:
		outcome = "lead_only"
	case c.Onboarding.IsEmpty():
		c.Onboarding = snapshot.Onboarding.Clone()
		outcome = "copied"
	default:
		c.Onboarding.Overlay(snapshot.Onboarding)
	}
	metrics.ContextRestores.WithLabelValues(outcome).Inc()

	s.log.Infow("Conversation context restored",
		"conversation_key", c.ConversationKey,
		"lead_fields_filled", filled,
		"onboarding", outcome,
		"completed_steps", c.Onboarding.CompletedSteps,
	)

	return true, nil
}
