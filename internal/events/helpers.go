package events

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Event topic constants
const (
	TopicOnboarding = "salesdesk.onboarding"
	TopicCallbacks  = "salesdesk.callbacks"
	TopicLeads      = "salesdesk.leads"
)

// Event type constants
const (
	TypeOnboardingStepCompleted = "onboarding.step_completed"
	TypeOnboardingCompleted     = "onboarding.completed"
	TypeCallbackAccepted        = "callback.accepted"
	TypeLeadUpdated             = "lead.updated"
)

// Base is embedded in every event
type Base struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	ConversationKey string    `json:"conversation_key"`
	OccurredAt      time.Time `json:"occurred_at"`
}

func newBase(eventType, conversationKey string) Base {
	return Base{
		ID:              uuid.NewString(),
		Type:            eventType,
		ConversationKey: sanitizeUTF8(conversationKey),
		OccurredAt:      time.Now().UTC(),
	}
}

// StepCompletedEvent is emitted when a step is appended to completed_steps
type StepCompletedEvent struct {
	Base
	Step           string   `json:"step"`
	CompletedSteps []string `json:"completed_steps"`
	NextStep       string   `json:"next_step,omitempty"`
}

// OnboardingCompletedEvent is emitted when onboarding_complete becomes true
type OnboardingCompletedEvent struct {
	Base
	InstructionsProvided bool `json:"instructions_provided"`
}

// CallbackAcceptedEvent is emitted when a lead accepts a callback offer
type CallbackAcceptedEvent struct {
	Base
	Offer         string     `json:"offer"`
	ServiceStatus string     `json:"service_status"`
	WindowOpensAt *time.Time `json:"window_opens_at,omitempty"`
}

// LeadUpdatedEvent carries which lead fields changed, never their values
type LeadUpdatedEvent struct {
	Base
	ChangedFields []string `json:"changed_fields"`
	NewLead       bool     `json:"new_lead"`
}

// sanitizeUTF8 drops invalid bytes so downstream consumers can decode keys
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}
