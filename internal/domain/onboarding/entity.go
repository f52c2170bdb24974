package onboarding

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"salesdesk/pkg/errors"
)

// Step is one onboarding milestone
type Step string

const (
	StepTradingExperience        Step = "trading_experience"
	StepBotRecommendation        Step = "bot_recommendation"
	StepBrokerSelection          Step = "broker_selection"
	StepBudgetCheck              Step = "budget_check"
	StepProfitShareClarification Step = "profit_share_clarification"
	StepInstructions             Step = "instructions"
)

// Steps is the canonical order the flow walks through
var Steps = []Step{
	StepTradingExperience,
	StepBotRecommendation,
	StepBrokerSelection,
	StepBudgetCheck,
	StepProfitShareClarification,
	StepInstructions,
}

// ParseStep validates a step name
func ParseStep(raw string) (Step, error) {
	name := Step(strings.ToLower(strings.TrimSpace(raw)))
	for _, s := range Steps {
		if s == name {
			return s, nil
		}
	}
	return "", errors.NewValidationError("step_name", "unknown onboarding step", raw)
}

func (s Step) String() string {
	return string(s)
}

// State is the onboarding progress of one conversation.
// Unset fields are nil and encode as null.
type State struct {
	CompletedSteps       []Step           `json:"completed_steps"`
	TradingExperience    *string          `json:"trading_experience"`
	PreviousBroker       *string          `json:"previous_broker"`
	TradingType          *string          `json:"trading_type"`
	BotPreference        *string          `json:"bot_preference"`
	BrokerPreference     *string          `json:"broker_preference"`
	BudgetConfirmed      *bool            `json:"budget_confirmed"`
	BudgetAmount         *decimal.Decimal `json:"budget_amount"`
	DemoOffered          *bool            `json:"demo_offered"`
	InstructionsProvided *bool            `json:"instructions_provided"`
	OnboardingComplete   *bool            `json:"onboarding_complete"`
	HasBrokerAccount     *bool            `json:"has_broker_account"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// NewState returns the default state of an unseen conversation
func NewState() *State {
	return &State{CompletedSteps: []Step{}}
}

// HasCompleted reports whether step is in CompletedSteps
func (s *State) HasCompleted(step Step) bool {
	for _, done := range s.CompletedSteps {
		if done == step {
			return true
		}
	}
	return false
}

// CompleteStep appends step unless already present. Reports whether it was appended.
func (s *State) CompleteStep(step Step) bool {
	if s.HasCompleted(step) {
		return false
	}
	s.CompletedSteps = append(s.CompletedSteps, step)
	return true
}

// NormalizeSteps canonicalizes CompletedSteps in place: names are parsed,
// duplicates dropped keeping first occurrence. Unknown names are rejected.
func (s *State) NormalizeSteps() error {
	steps := make([]Step, 0, len(s.CompletedSteps))
	seen := make(map[Step]struct{}, len(s.CompletedSteps))
	for _, raw := range s.CompletedSteps {
		step, err := ParseStep(string(raw))
		if err != nil {
			return errors.NewValidationError("completed_steps", "unknown onboarding step", raw)
		}
		if _, ok := seen[step]; ok {
			continue
		}
		seen[step] = struct{}{}
		steps = append(steps, step)
	}
	s.CompletedSteps = steps
	return nil
}

// NextStep is the first canonical step not yet completed; false once all are done
func (s *State) NextStep() (Step, bool) {
	for _, step := range Steps {
		if !s.HasCompleted(step) {
			return step, true
		}
	}
	return "", false
}

// IsComplete reports whether onboarding_complete was set
func (s *State) IsComplete() bool {
	return s.OnboardingComplete != nil && *s.OnboardingComplete
}

// InstructionsGiven reports whether instructions_provided was set
func (s *State) InstructionsGiven() bool {
	return s.InstructionsProvided != nil && *s.InstructionsProvided
}

// IsEmpty reports whether nothing has been recorded yet
func (s *State) IsEmpty() bool {
	if s == nil {
		return true
	}
	return len(s.CompletedSteps) == 0 &&
		s.TradingExperience == nil &&
		s.PreviousBroker == nil &&
		s.TradingType == nil &&
		s.BotPreference == nil &&
		s.BrokerPreference == nil &&
		s.BudgetConfirmed == nil &&
		s.BudgetAmount == nil &&
		s.DemoOffered == nil &&
		s.InstructionsProvided == nil &&
		s.OnboardingComplete == nil &&
		s.HasBrokerAccount == nil
}

// Apply merges the provided fields, last write wins. Returns the names of the
// fields that were set.
func (s *State) Apply(f Fields) []string {
	var set []string
	str := func(name string, dst **string, v *string) {
		if v != nil {
			*dst = cloneString(v)
			set = append(set, name)
		}
	}
	flag := func(name string, dst **bool, v *bool) {
		if v != nil {
			*dst = cloneBool(v)
			set = append(set, name)
		}
	}

	str("trading_experience", &s.TradingExperience, f.TradingExperience)
	str("previous_broker", &s.PreviousBroker, f.PreviousBroker)
	str("trading_type", &s.TradingType, f.TradingType)
	str("bot_preference", &s.BotPreference, f.BotPreference)
	str("broker_preference", &s.BrokerPreference, f.BrokerPreference)
	flag("budget_confirmed", &s.BudgetConfirmed, f.BudgetConfirmed)
	if f.BudgetAmount != nil {
		amount := *f.BudgetAmount
		s.BudgetAmount = &amount
		set = append(set, "budget_amount")
	}
	flag("demo_offered", &s.DemoOffered, f.DemoOffered)
	flag("instructions_provided", &s.InstructionsProvided, f.InstructionsProvided)
	flag("onboarding_complete", &s.OnboardingComplete, f.OnboardingComplete)
	flag("has_broker_account", &s.HasBrokerAccount, f.HasBrokerAccount)

	return set
}

// Overlay copies every non-nil field of cached over s and unions completed
// steps, keeping cached order first
func (s *State) Overlay(cached *State) {
	if cached == nil {
		return
	}
	merged := make([]Step, 0, len(cached.CompletedSteps)+len(s.CompletedSteps))
	seen := make(map[Step]struct{}, cap(merged))
	for _, steps := range [][]Step{cached.CompletedSteps, s.CompletedSteps} {
		for _, step := range steps {
			if _, ok := seen[step]; !ok {
				seen[step] = struct{}{}
				merged = append(merged, step)
			}
		}
	}
	s.CompletedSteps = merged
	s.Apply(cached.asFields())
	if cached.UpdatedAt.After(s.UpdatedAt) {
		s.UpdatedAt = cached.UpdatedAt
	}
}

// Clone returns a deep copy
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := NewState()
	out.CompletedSteps = append(out.CompletedSteps, s.CompletedSteps...)
	out.Apply(s.asFields())
	out.UpdatedAt = s.UpdatedAt
	return out
}

func (s *State) asFields() Fields {
	return Fields{
		TradingExperience:    s.TradingExperience,
		PreviousBroker:       s.PreviousBroker,
		TradingType:          s.TradingType,
		BotPreference:        s.BotPreference,
		BrokerPreference:     s.BrokerPreference,
		BudgetConfirmed:      s.BudgetConfirmed,
		BudgetAmount:         s.BudgetAmount,
		DemoOffered:          s.DemoOffered,
		InstructionsProvided: s.InstructionsProvided,
		OnboardingComplete:   s.OnboardingComplete,
		HasBrokerAccount:     s.HasBrokerAccount,
	}
}

// Fields is a partial update; nil means not provided
type Fields struct {
	TradingExperience    *string          `json:"trading_experience,omitempty"`
	PreviousBroker       *string          `json:"previous_broker,omitempty"`
	TradingType          *string          `json:"trading_type,omitempty"`
	BotPreference        *string          `json:"bot_preference,omitempty"`
	BrokerPreference     *string          `json:"broker_preference,omitempty"`
	BudgetConfirmed      *bool            `json:"budget_confirmed,omitempty"`
	BudgetAmount         *decimal.Decimal `json:"budget_amount,omitempty"`
	DemoOffered          *bool            `json:"demo_offered,omitempty"`
	InstructionsProvided *bool            `json:"instructions_provided,omitempty"`
	OnboardingComplete   *bool            `json:"onboarding_complete,omitempty"`
	HasBrokerAccount     *bool            `json:"has_broker_account,omitempty"`
}

// Normalize trims string values and drops the ones left empty, then validates
func (f Fields) Normalize() (Fields, error) {
	for _, p := range []**string{
		&f.TradingExperience, &f.PreviousBroker, &f.TradingType, &f.BotPreference, &f.BrokerPreference,
	} {
		if *p == nil {
			continue
		}
		v := strings.TrimSpace(**p)
		if v == "" {
			*p = nil
			continue
		}
		*p = &v
	}

	if f.BudgetAmount != nil && f.BudgetAmount.IsNegative() {
		return Fields{}, errors.NewValidationError("budget_amount", "must not be negative", f.BudgetAmount.String())
	}
	return f, nil
}

func cloneString(v *string) *string {
	c := *v
	return &c
}

func cloneBool(v *bool) *bool {
	c := *v
	return &c
}
