package conversation

import (
	"strings"
	"time"

	"salesdesk/internal/domain/onboarding"
	"salesdesk/pkg/errors"
)

// MaxKeyLength bounds conversation keys in bytes
const MaxKeyLength = 256

// UnknownCountry is what the orchestration layer writes when the lead's
// country was never captured
const UnknownCountry = "Unknown"

// Key identifies a lead's ongoing interaction across session churn
type Key string

// ParseKey trims and validates a conversation key
func ParseKey(raw string) (Key, error) {
	key := strings.TrimSpace(raw)
	switch {
	case key == "":
		return "", errors.NewValidationError("conversation_key", "must not be empty", raw)
	case len(key) > MaxKeyLength:
		return "", errors.NewValidationError("conversation_key", "too long", len(key))
	}
	return Key(key), nil
}

// LeadInfo is what is known about the lead
type LeadInfo struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Country   string `json:"country"`
	NewLead   bool   `json:"new_lead"`
}

// Apply merges trimmed, non-empty values. Returns the names of changed fields.
func (l *LeadInfo) Apply(f LeadFields) []string {
	var changed []string
	set := func(name string, dst *string, v *string) {
		if v == nil {
			return
		}
		trimmed := strings.TrimSpace(*v)
		if trimmed == "" || trimmed == *dst {
			return
		}
		*dst = trimmed
		changed = append(changed, name)
	}

	set("first_name", &l.FirstName, f.FirstName)
	set("email", &l.Email, f.Email)
	set("phone", &l.Phone, f.Phone)
	set("country", &l.Country, f.Country)
	if f.NewLead != nil && *f.NewLead != l.NewLead {
		l.NewLead = *f.NewLead
		changed = append(changed, "new_lead")
	}
	return changed
}

// FillMissing copies cached values into fields the fresh lead lacks. An
// "Unknown" country counts as missing. Returns the names of filled fields.
func (l *LeadInfo) FillMissing(cached LeadInfo) []string {
	var filled []string
	fill := func(name string, dst *string, v string, missing bool) {
		if v != "" && missing {
			*dst = v
			filled = append(filled, name)
		}
	}

	fill("country", &l.Country, cached.Country, l.Country == "" || l.Country == UnknownCountry)
	fill("first_name", &l.FirstName, cached.FirstName, l.FirstName == "")
	fill("email", &l.Email, cached.Email, l.Email == "")
	fill("phone", &l.Phone, cached.Phone, l.Phone == "")
	if cached.NewLead && !l.NewLead {
		l.NewLead = true
		filled = append(filled, "new_lead")
	}
	return filled
}

// IsEmpty reports whether nothing is known about the lead
func (l LeadInfo) IsEmpty() bool {
	return l == LeadInfo{}
}

// LeadFields is a partial lead update; nil means not provided
type LeadFields struct {
	FirstName *string `json:"first_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Country   *string `json:"country,omitempty"`
	NewLead   *bool   `json:"new_lead,omitempty"`
}

// Snapshot is the cached lead and progress of one conversation
type Snapshot struct {
	Lead       LeadInfo          `json:"lead"`
	Onboarding *onboarding.State `json:"onboarding"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// NewSnapshot returns an empty snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{Onboarding: onboarding.NewState()}
}

// Clone returns a deep copy
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Onboarding = s.Onboarding.Clone()
	return &out
}

// Context is the per-turn context the orchestration layer (re)creates
type Context struct {
	ConversationKey string            `json:"conversation_key"`
	Lead            LeadInfo          `json:"lead"`
	Onboarding      *onboarding.State `json:"onboarding"`
}
