package availability

import (
	"time"

	domain "salesdesk/internal/domain/availability"
	"salesdesk/pkg/errors"
)

// OfferPolicy holds the thresholds that decide which callbacks can be offered
type OfferPolicy struct {
	// ImmediateBuffer is the minimum time left before closing for an immediate callback
	ImmediateBuffer time.Duration
	// DelayedThreshold is how soon the service must open for a delayed callback
	DelayedThreshold time.Duration
	// FallbackLink is the self-service booking page
	FallbackLink string
}

// Engine classifies an instant against the window policy and derives offers.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	policy *WindowPolicy
	offers OfferPolicy
}

// NewEngine validates the offer policy and builds an engine
func NewEngine(policy *WindowPolicy, offers OfferPolicy) (*Engine, error) {
	if policy == nil {
		return nil, errors.NewConfigurationError("window policy is required", nil)
	}
	if offers.ImmediateBuffer < 0 {
		return nil, errors.NewConfigurationError("immediate buffer must not be negative",
			errors.NewValidationError("immediate_buffer", "negative duration", offers.ImmediateBuffer))
	}
	if offers.DelayedThreshold < 0 {
		return nil, errors.NewConfigurationError("delayed threshold must not be negative",
			errors.NewValidationError("delayed_threshold", "negative duration", offers.DelayedThreshold))
	}
	return &Engine{policy: policy, offers: offers}, nil
}

// Policy returns the window policy
func (e *Engine) Policy() *WindowPolicy {
	return e.policy
}

// FallbackLink returns the self-service booking link
func (e *Engine) FallbackLink() string {
	return e.offers.FallbackLink
}

// Compute classifies now and lists the viable offers minus excluded ones.
// Nothing from earlier calls is reused.
func (e *Engine) Compute(now time.Time, excluded domain.OfferSet) domain.Result {
	now = now.UTC()
	w := e.policy.Locate(now)

	res := domain.Result{
		Status:             domain.StatusClosed,
		DayName:            domain.DayName(w.Day),
		IsSpecialDay:       w.Special,
		UnavailableReasons: make(map[domain.OfferKind]domain.ReasonCode),
		NowUTC:             now,
	}

	opensAt := w.OpensAt
	res.WindowOpensAt = &opensAt
	if !w.ClosesAt.IsZero() {
		closesAt := w.ClosesAt
		res.WindowClosesAt = &closesAt
	}

	candidates := make([]domain.OfferKind, 0, len(domain.OfferKinds))

	if w.Open {
		res.Status = domain.StatusOpen
		left := w.ClosesAt.Sub(now)
		minutes := minutesFloor(left)
		res.MinutesUntilClose = &minutes

		if left > e.offers.ImmediateBuffer {
			candidates = append(candidates, domain.OfferImmediate)
		} else {
			res.UnavailableReasons[domain.OfferImmediate] = domain.ReasonClosesIn(minutes)
		}
		candidates = append(candidates, domain.OfferDelayed)
	} else {
		minutes := minutesCeil(w.OpensAt.Sub(now))
		res.MinutesUntilOpen = &minutes

		switch {
		case w.Special:
			res.UnavailableReasons[domain.OfferImmediate] = domain.ReasonSpecialClosedDay
			res.UnavailableReasons[domain.OfferDelayed] = domain.ReasonSpecialClosedDay
		case minutes <= minutesFloor(e.offers.DelayedThreshold):
			res.UnavailableReasons[domain.OfferImmediate] = domain.ReasonOpensIn(minutes)
			candidates = append(candidates, domain.OfferDelayed)
		default:
			res.UnavailableReasons[domain.OfferImmediate] = domain.ReasonOpensIn(minutes)
			res.UnavailableReasons[domain.OfferDelayed] = domain.ReasonWindowTooFar
		}
	}
	candidates = append(candidates, domain.OfferSelfService)

	res.AvailableOffers = make([]domain.OfferKind, 0, len(candidates))
	for _, kind := range candidates {
		if excluded.Has(kind) {
			res.UnavailableReasons[kind] = domain.ReasonExcludedByCaller
			continue
		}
		res.AvailableOffers = append(res.AvailableOffers, kind)
	}

	// self-service cannot be excluded away entirely: the list never comes back empty
	if len(res.AvailableOffers) == 0 {
		res.AvailableOffers = append(res.AvailableOffers, domain.OfferSelfService)
		delete(res.UnavailableReasons, domain.OfferSelfService)
	}

	if res.Offers(domain.OfferSelfService) {
		res.FallbackLink = e.offers.FallbackLink
	}

	return res
}

func minutesCeil(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}

func minutesFloor(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}
