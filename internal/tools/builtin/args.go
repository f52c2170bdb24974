package builtin

import (
	"strings"
	"time"

	"salesdesk/internal/domain/conversation"
	"salesdesk/internal/domain/onboarding"
	"salesdesk/pkg/errors"
)

// AvailabilityArgs is shared by the availability and recommendation tools
type AvailabilityArgs struct {
	// Now is RFC3339; empty means the server clock
	Now            string   `json:"now,omitempty"`
	ExcludedOffers []string `json:"excluded_offers,omitempty"`
}

func (a AvailabilityArgs) instant() (time.Time, error) {
	if strings.TrimSpace(a.Now) == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(a.Now))
	if err != nil {
		return time.Time{}, errors.NewValidationError("now", "expected RFC3339 timestamp", a.Now)
	}
	return t, nil
}

type CallbackArgs struct {
	ConversationKey string `json:"conversation_key"`
	Offer           string `json:"offer"`
}

type KeyArgs struct {
	ConversationKey string `json:"conversation_key"`
}

type OnboardingUpdateArgs struct {
	ConversationKey string `json:"conversation_key"`
	StepName        string `json:"step_name,omitempty"`
	onboarding.Fields
}

type LeadUpdateArgs struct {
	ConversationKey string `json:"conversation_key"`
	conversation.LeadFields
}

type RestoreArgs struct {
	ConversationKey string                `json:"conversation_key"`
	Lead            conversation.LeadInfo `json:"lead"`
	Onboarding      *onboarding.State     `json:"onboarding,omitempty"`
}
