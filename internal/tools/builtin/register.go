package builtin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"salesdesk/internal/domain/conversation"
	"salesdesk/internal/domain/onboarding"
	"salesdesk/internal/services/availability"
	conversationsvc "salesdesk/internal/services/conversation"
	onboardingsvc "salesdesk/internal/services/onboarding"
	"salesdesk/internal/tools"
	"salesdesk/internal/tools/middleware"
	"salesdesk/pkg/logger"
)

// Tool names exposed to the orchestration layer
const (
	ToolCheckAvailability   = "check_call_availability"
	ToolRecommendation      = "get_scheduling_recommendation"
	ToolConfirmCallback     = "confirm_callback"
	ToolBookingLink         = "get_booking_link"
	ToolGetOnboarding       = "get_onboarding_state"
	ToolUpdateOnboarding    = "update_onboarding_state"
	ToolCompleteOnboarding  = "complete_onboarding"
	ToolUpdateLead          = "update_lead_info"
	ToolRestoreContext      = "restore_context"
	defaultToolTimeout      = 5 * time.Second
	defaultRetryAttempts    = 3
	defaultRetryBackoff     = 50 * time.Millisecond
)

// Deps bundles the services the tools call into
type Deps struct {
	Availability *availability.Service
	Onboarding   *onboardingsvc.Service
	Conversation *conversationsvc.Service
	Log          *logger.Logger
}

// OnboardingUpdate is returned by update_onboarding_state
type OnboardingUpdate struct {
	onboardingsvc.Progress
	Message string `json:"message"`
}

// BookingLink is returned by get_booking_link
type BookingLink struct {
	Link    string `json:"link"`
	Message string `json:"message"`
}

// RestoreResult is returned by restore_context
type RestoreResult struct {
	Restored bool                  `json:"restored"`
	Context  *conversation.Context `json:"context"`
	NextStep *onboarding.Step      `json:"next_step"`
}

// RegisterAll registers every tool, wrapped in metrics, retry and timeout middleware
func RegisterAll(registry *tools.Registry, deps Deps) {
	log := deps.Log.With("component", "tool_registration")

	wrap := func(t tools.Tool) {
		registry.Register(t.Name(), middleware.Chain(t,
			middleware.MetricsMiddleware{Log: deps.Log},
			middleware.RetryMiddleware{Attempts: defaultRetryAttempts, Backoff: defaultRetryBackoff},
			middleware.TimeoutMiddleware{Timeout: defaultToolTimeout},
		))
	}

	// Scheduling
	wrap(tools.NewTyped(ToolCheckAvailability,
		"Check whether the phone team can call right now and which callback offers are viable",
		func(ctx context.Context, args AvailabilityArgs) (interface{}, error) {
			at, err := args.instant()
			if err != nil {
				return nil, err
			}
			return deps.Availability.Check(at, availability.ParseExclusions(args.ExcludedOffers)), nil
		}))

	wrap(tools.NewTyped(ToolRecommendation,
		"Pick the next callback offer to present, skipping offers the lead already declined",
		func(ctx context.Context, args AvailabilityArgs) (interface{}, error) {
			at, err := args.instant()
			if err != nil {
				return nil, err
			}
			return deps.Availability.Recommend(at, availability.ParseExclusions(args.ExcludedOffers)), nil
		}))

	wrap(tools.NewTyped(ToolConfirmCallback,
		"Record that the lead accepted an immediate or delayed callback",
		func(ctx context.Context, args CallbackArgs) (interface{}, error) {
			return deps.Availability.ConfirmCallback(ctx, args.ConversationKey, args.Offer)
		}))

	wrap(tools.NewTyped(ToolBookingLink,
		"Return the self-service booking link",
		func(ctx context.Context, _ struct{}) (interface{}, error) {
			link := deps.Availability.BookingLink()
			return BookingLink{Link: link, Message: availability.BookingLinkMessage(link)}, nil
		}))
	log.Debug("Registered scheduling tools")

	// Onboarding
	wrap(tools.NewTyped(ToolGetOnboarding,
		"Read onboarding progress and the step to resume at",
		func(ctx context.Context, args KeyArgs) (interface{}, error) {
			state, err := deps.Onboarding.Get(ctx, args.ConversationKey)
			if err != nil {
				return nil, err
			}
			return onboardingsvc.NewProgress(state), nil
		}))

	wrap(tools.NewTyped(ToolUpdateOnboarding,
		"Merge answered onboarding fields and mark a step completed",
		func(ctx context.Context, args OnboardingUpdateArgs) (interface{}, error) {
			state, err := deps.Onboarding.MergeUpdate(ctx, args.ConversationKey, args.StepName, args.Fields)
			if err != nil {
				return nil, err
			}
			return OnboardingUpdate{
				Progress: onboardingsvc.NewProgress(state),
				Message:  updateMessage(state),
			}, nil
		}))

	wrap(tools.NewTyped(ToolCompleteOnboarding,
		"Mark onboarding complete once the lead opened an account and set up copy trading",
		func(ctx context.Context, args KeyArgs) (interface{}, error) {
			state, err := deps.Onboarding.MarkComplete(ctx, args.ConversationKey)
			if err != nil {
				return nil, err
			}
			return onboardingsvc.NewProgress(state), nil
		}))
	log.Debug("Registered onboarding tools")

	// Conversation cache
	wrap(tools.NewTyped(ToolUpdateLead,
		"Correct lead details such as country so they survive context resets",
		func(ctx context.Context, args LeadUpdateArgs) (interface{}, error) {
			snapshot, err := deps.Conversation.UpdateLead(ctx, args.ConversationKey, args.LeadFields)
			if err != nil {
				return nil, err
			}
			return snapshot.Lead, nil
		}))

	wrap(tools.NewTyped(ToolRestoreContext,
		"Re-seed a freshly created conversation context from cached lead and progress data",
		func(ctx context.Context, args RestoreArgs) (interface{}, error) {
			c := &conversation.Context{
				ConversationKey: args.ConversationKey,
				Lead:            args.Lead,
				Onboarding:      args.Onboarding,
			}
			restored, err := deps.Conversation.Restore(ctx, c)
			if err != nil {
				return nil, err
			}
			return RestoreResult{
				Restored: restored,
				Context:  c,
				NextStep: onboardingsvc.NewProgress(c.Onboarding).NextStep,
			}, nil
		}))
	log.Debug("Registered conversation tools")

	log.Infow("Tools registered", "count", len(registry.List()))
}

func updateMessage(state *onboarding.State) string {
	done := "none"
	if len(state.CompletedSteps) > 0 {
		names := make([]string, len(state.CompletedSteps))
		for i, s := range state.CompletedSteps {
			names[i] = string(s)
		}
		done = strings.Join(names, ", ")
	}
	return fmt.Sprintf("Onboarding state updated successfully. Completed steps: %s", done)
}
