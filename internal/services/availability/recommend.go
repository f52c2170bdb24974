package availability

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	domain "salesdesk/internal/domain/availability"
)

// Recommendation is the single next offer to present, with a message the
// assistant can send verbatim
type Recommendation struct {
	RecommendedAction domain.OfferKind   `json:"recommended_action"`
	UserSafeMessage   string             `json:"user_safe_message"`
	Summary           string             `json:"summary"`
	ExcludedOffers    []domain.OfferKind `json:"excluded_offers"`
	Availability      domain.Result      `json:"availability"`
}

const (
	immediateMessage     = "I can have someone call you in about 20 minutes. Does that work?"
	delayedMessage       = "I can have someone call you in 2-4 hours. Does that work?"
	delayedClosedMessage = "We're closed right now, but I can have someone call you in 2-4 hours. Does that work?"
	selfServiceMessage   = "Let me help you schedule a call for later. " +
		"Here's our booking page where you can select a time that works for you: %s\n\n" +
		"In the meantime, do you have any questions or anything I can help you with?"

	// ConfirmationMessage is sent once a lead accepts a callback
	ConfirmationMessage = "Great, someone from our team will call you within this timeframe."

	bookingLinkMessage = "You can schedule a call at your convenience using our booking page: %s\n" +
		"Simply select a time that works for you, and we'll call you at the scheduled time."
)

func recommend(res domain.Result, excluded domain.OfferSet) Recommendation {
	rec := Recommendation{
		RecommendedAction: res.AvailableOffers[0],
		Summary:           summarize(res),
		ExcludedOffers:    sortedKinds(excluded),
		Availability:      res,
	}

	switch rec.RecommendedAction {
	case domain.OfferImmediate:
		rec.UserSafeMessage = immediateMessage
	case domain.OfferDelayed:
		// only say we're closed when we actually are
		if res.IsOpen() {
			rec.UserSafeMessage = delayedMessage
		} else {
			rec.UserSafeMessage = delayedClosedMessage
		}
	default:
		rec.UserSafeMessage = fmt.Sprintf(selfServiceMessage, res.FallbackLink)
	}

	return rec
}

func summarize(res domain.Result) string {
	now := res.NowUTC
	if res.IsOpen() && res.WindowClosesAt != nil {
		closesAt := *res.WindowClosesAt
		return fmt.Sprintf("service is open until %s UTC, closing %s",
			closesAt.Format("Monday 15:04"), humanize.RelTime(closesAt, now, "ago", "from now"))
	}
	if res.WindowOpensAt == nil {
		return "service is closed"
	}
	opensAt := *res.WindowOpensAt
	return fmt.Sprintf("service will resume on %s at %s UTC, %s",
		opensAt.Format("Monday, January 02"), opensAt.Format("15:04"),
		humanize.RelTime(opensAt, now, "ago", "from now"))
}

// BookingLinkMessage renders the self-service link for the lead
func BookingLinkMessage(link string) string {
	return fmt.Sprintf(bookingLinkMessage, link)
}

func sortedKinds(set domain.OfferSet) []domain.OfferKind {
	kinds := make([]domain.OfferKind, 0, len(set))
	for _, k := range domain.OfferKinds {
		if set.Has(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// timePtr is used by callers that need an optional instant
func timePtr(t time.Time) *time.Time {
	return &t
}
