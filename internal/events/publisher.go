package events

import (
	"context"
	"time"

	"salesdesk/internal/metrics"
	"salesdesk/pkg/errors"
	"salesdesk/pkg/logger"
)

// Sink delivers an encoded event to a topic. The kafka producer satisfies it.
type Sink interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// Publisher publishes domain events. With a nil sink events are dropped.
type Publisher struct {
	sink Sink
	log  *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(sink Sink, log *logger.Logger) *Publisher {
	return &Publisher{
		sink: sink,
		log:  log.With("component", "event_publisher"),
	}
}

// PublishStepCompleted publishes an onboarding step completion
func (p *Publisher) PublishStepCompleted(ctx context.Context, conversationKey, step string, completed []string, next string) error {
	event := StepCompletedEvent{
		Base:           newBase(TypeOnboardingStepCompleted, conversationKey),
		Step:           step,
		CompletedSteps: completed,
		NextStep:       next,
	}
	return p.publish(ctx, TopicOnboarding, event.Base, event)
}

// PublishOnboardingCompleted publishes the end of the onboarding flow
func (p *Publisher) PublishOnboardingCompleted(ctx context.Context, conversationKey string, instructionsProvided bool) error {
	event := OnboardingCompletedEvent{
		Base:                 newBase(TypeOnboardingCompleted, conversationKey),
		InstructionsProvided: instructionsProvided,
	}
	return p.publish(ctx, TopicOnboarding, event.Base, event)
}

// PublishCallbackAccepted publishes an accepted callback offer
func (p *Publisher) PublishCallbackAccepted(ctx context.Context, conversationKey, offer, status string, opensAt *time.Time) error {
	event := CallbackAcceptedEvent{
		Base:          newBase(TypeCallbackAccepted, conversationKey),
		Offer:         offer,
		ServiceStatus: status,
		WindowOpensAt: opensAt,
	}
	return p.publish(ctx, TopicCallbacks, event.Base, event)
}

// PublishLeadUpdated publishes which lead fields changed
func (p *Publisher) PublishLeadUpdated(ctx context.Context, conversationKey string, changed []string, newLead bool) error {
	event := LeadUpdatedEvent{
		Base:          newBase(TypeLeadUpdated, conversationKey),
		ChangedFields: changed,
		NewLead:       newLead,
	}
	return p.publish(ctx, TopicLeads, event.Base, event)
}

func (p *Publisher) publish(ctx context.Context, topic string, base Base, event interface{}) error {
	if p == nil || p.sink == nil {
		return nil
	}

	// keyed by conversation so one lead's events stay ordered within a partition
	err := p.sink.Publish(ctx, topic, base.ConversationKey, event)
	metrics.RecordEvent(base.Type, err)
	if err != nil {
		p.log.Errorw("Failed to publish event",
			"topic", topic,
			"type", base.Type,
			"conversation_key", base.ConversationKey,
			"error", err,
		)
		return errors.Wrap(err, "send event")
	}

	p.log.Debugw("Event published",
		"topic", topic,
		"type", base.Type,
		"event_id", base.ID,
	)
	return nil
}
