package availability

import (
	"context"
	"strings"
	"time"

	domain "salesdesk/internal/domain/availability"
	"salesdesk/internal/domain/conversation"
	"salesdesk/internal/metrics"
	"salesdesk/pkg/errors"
	"salesdesk/pkg/logger"
)

// CallbackPublisher is notified of accepted callbacks (DI for testability)
type CallbackPublisher interface {
	PublishCallbackAccepted(ctx context.Context, conversationKey, offer, status string, opensAt *time.Time) error
}

// Confirmation is returned once a callback offer is accepted
type Confirmation struct {
	Offer             domain.OfferKind `json:"offer"`
	SuggestedResponse string           `json:"suggested_response"`
	Status            domain.Status    `json:"service_status"`
}

// Service exposes the engine to the orchestration layer, reading the clock when
// no instant is given
type Service struct {
	engine    *Engine
	clock     Clock
	publisher CallbackPublisher
	log       *logger.Logger
}

// NewService creates the availability service
func NewService(engine *Engine, clock Clock, publisher CallbackPublisher, log *logger.Logger) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Service{
		engine:    engine,
		clock:     clock,
		publisher: publisher,
		log:       log.With("service", "availability"),
	}
}

// Check computes availability at `at`, or now when at is zero
func (s *Service) Check(at time.Time, excluded domain.OfferSet) domain.Result {
	if at.IsZero() {
		at = s.clock.Now()
	}

	res := s.engine.Compute(at, excluded)
	metrics.RecordAvailability(string(res.Status), res.IsSpecialDay)

	s.log.Debugw("Availability computed",
		"now", res.NowUTC,
		"status", res.Status,
		"special_day", res.IsSpecialDay,
		"offers", res.AvailableOffers,
	)
	return res
}

// Recommend picks the first viable offer after exclusions
func (s *Service) Recommend(at time.Time, excluded domain.OfferSet) Recommendation {
	rec := recommend(s.Check(at, excluded), excluded)
	metrics.OffersRecommended.WithLabelValues(string(rec.RecommendedAction)).Inc()
	return rec
}

// ConfirmCallback records that the lead accepted a callback. The offer must be
// viable right now; availability is recomputed rather than trusted from an
// earlier turn.
func (s *Service) ConfirmCallback(ctx context.Context, conversationKey string, offer string) (*Confirmation, error) {
	key, err := conversation.ParseKey(conversationKey)
	if err != nil {
		return nil, err
	}

	kind, ok := domain.ParseOfferKind(offer)
	if !ok || kind == domain.OfferSelfService {
		return nil, errors.NewValidationError("offer", "must be one of immediate, delayed", offer)
	}

	res := s.Check(time.Time{}, nil)
	if !res.Offers(kind) {
		reason := res.UnavailableReasons[kind]
		s.log.Infow("Callback offer no longer available",
			"conversation_key", key,
			"offer", kind,
			"reason", reason,
		)
		return nil, errors.Wrapf(errors.ErrOfferUnavailable, "%s callback: %s", kind, reason)
	}

	var opensAt *time.Time
	if !res.IsOpen() && res.WindowOpensAt != nil {
		opensAt = timePtr(*res.WindowOpensAt)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishCallbackAccepted(ctx, string(key), string(kind), string(res.Status), opensAt); err != nil {
			s.log.Warnw("Failed to publish callback acceptance",
				"conversation_key", key,
				"error", err,
			)
		}
	}
	metrics.CallbacksAccepted.WithLabelValues(string(kind)).Inc()

	s.log.Infow("Callback accepted",
		"conversation_key", key,
		"offer", kind,
		"service_status", res.Status,
	)

	return &Confirmation{
		Offer:             kind,
		SuggestedResponse: ConfirmationMessage,
		Status:            res.Status,
	}, nil
}

// BookingLink returns the self-service fallback link
func (s *Service) BookingLink() string {
	return s.engine.FallbackLink()
}

// ParseExclusions converts wire values; unknown kinds are ignored
func ParseExclusions(raw []string) domain.OfferSet {
	cleaned := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	return domain.ParseOfferSet(cleaned)
}
