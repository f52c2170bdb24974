package availability

import (
	"fmt"
	"strings"
	"time"

	"salesdesk/pkg/errors"
)

// OfferKind is a kind of callback the assistant can propose to a lead
type OfferKind string

const (
	// OfferImmediate is a callback in about 20 minutes
	OfferImmediate OfferKind = "immediate"
	// OfferDelayed is a callback in 2-4 hours
	OfferDelayed OfferKind = "delayed"
	// OfferSelfService is the booking-link fallback
	OfferSelfService OfferKind = "self_service"
)

// OfferKinds lists every kind in preference order
var OfferKinds = []OfferKind{OfferImmediate, OfferDelayed, OfferSelfService}

// ParseOfferKind maps a wire value to an OfferKind
func ParseOfferKind(s string) (OfferKind, bool) {
	k := OfferKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case OfferImmediate, OfferDelayed, OfferSelfService:
		return k, true
	}
	return "", false
}

// Rank returns the preference position of the kind, lower is preferred
func (k OfferKind) Rank() int {
	for i, kind := range OfferKinds {
		if kind == k {
			return i
		}
	}
	return len(OfferKinds)
}

// OfferSet is a set of offer kinds, used for caller exclusions
type OfferSet map[OfferKind]struct{}

// NewOfferSet builds a set from known kinds
func NewOfferSet(kinds ...OfferKind) OfferSet {
	s := make(OfferSet, len(kinds))
	for _, k := range kinds {
		s[k] = struct{}{}
	}
	return s
}

// ParseOfferSet builds a set from raw strings. Unrecognized values are ignored.
func ParseOfferSet(raw []string) OfferSet {
	s := make(OfferSet, len(raw))
	for _, v := range raw {
		if k, ok := ParseOfferKind(v); ok {
			s[k] = struct{}{}
		}
	}
	return s
}

// Has reports whether k is in the set
func (s OfferSet) Has(k OfferKind) bool {
	_, ok := s[k]
	return ok
}

// Status of the phone service at a given instant
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// ReasonCode explains why an offer kind is missing from a result
type ReasonCode string

const (
	ReasonSpecialClosedDay ReasonCode = "special_closed_day"
	ReasonWindowTooFar     ReasonCode = "window_too_far"
	ReasonExcludedByCaller ReasonCode = "excluded_by_caller"
)

// ReasonOpensIn is used while the service is closed for the day
func ReasonOpensIn(minutes int) ReasonCode {
	return ReasonCode(fmt.Sprintf("opens_in_%d_minutes", minutes))
}

// ReasonClosesIn is used when the service closes before an immediate callback could happen
func ReasonClosesIn(minutes int) ReasonCode {
	return ReasonCode(fmt.Sprintf("closes_in_%d_minutes", minutes))
}

// Result is the availability snapshot for one instant. Computed fresh on every call.
type Result struct {
	Status             Status                   `json:"status"`
	DayName            string                   `json:"day_name"`
	IsSpecialDay       bool                     `json:"is_special_day"`
	MinutesUntilOpen   *int                     `json:"minutes_until_open"`
	MinutesUntilClose  *int                     `json:"minutes_until_close"`
	AvailableOffers    []OfferKind              `json:"available_offers"`
	UnavailableReasons map[OfferKind]ReasonCode `json:"unavailable_reasons"`
	FallbackLink       string                   `json:"fallback_link,omitempty"`
	NowUTC             time.Time                `json:"now_utc"`
	WindowOpensAt      *time.Time               `json:"window_opens_at"`
	WindowClosesAt     *time.Time               `json:"window_closes_at"`
}

// IsOpen reports whether the phone service is open
func (r Result) IsOpen() bool {
	return r.Status == StatusOpen
}

// Offers reports whether kind is among the available offers
func (r Result) Offers(kind OfferKind) bool {
	for _, k := range r.AvailableOffers {
		if k == kind {
			return true
		}
	}
	return false
}

// LocalTime is a naive time of day
type LocalTime struct {
	Hour   int
	Minute int
}

// ParseLocalTime parses "HH:MM" (24h clock)
func ParseLocalTime(s string) (LocalTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return LocalTime{}, errors.NewValidationError("local_time", "expected HH:MM", s)
	}
	return LocalTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t LocalTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ZonedTime is a local time of day anchored to an IANA zone
type ZonedTime struct {
	At   LocalTime
	Zone string
}

// WindowSpec describes the daily service window: it opens at Open local time in
// Open's zone and closes at Close local time in Close's zone. ClosedDay is the
// weekday, in the opening zone, on which the service never opens.
type WindowSpec struct {
	Open      ZonedTime
	Close     ZonedTime
	ClosedDay time.Weekday
}

// Validate checks the parts of the spec that do not need the zone database
func (s WindowSpec) Validate() error {
	var errs errors.MultiError
	if s.Open.Zone == "" {
		errs.Add(errors.NewValidationError("open.zone", "zone is required", s.Open.Zone))
	}
	if s.Close.Zone == "" {
		errs.Add(errors.NewValidationError("close.zone", "zone is required", s.Close.Zone))
	}
	for field, t := range map[string]LocalTime{"open.at": s.Open.At, "close.at": s.Close.At} {
		if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
			errs.Add(errors.NewValidationError(field, "time of day out of range", t))
		}
	}
	if s.ClosedDay < time.Sunday || s.ClosedDay > time.Saturday {
		errs.Add(errors.NewValidationError("closed_day", "unknown weekday", s.ClosedDay))
	}
	if err := errs.ToError(); err != nil {
		return errors.NewConfigurationError("invalid window spec", err)
	}
	return nil
}

// ParseWeekday parses an English weekday name ("sunday", "Sun")
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || (len(name) == 3 && strings.HasPrefix(full, name)) {
			return d, nil
		}
	}
	return 0, errors.NewValidationError("weekday", "unknown weekday", s)
}

// DayName renders a weekday the way results carry it ("monday")
func DayName(d time.Weekday) string {
	return strings.ToLower(d.String())
}
