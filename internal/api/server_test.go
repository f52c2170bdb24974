package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdesk/internal/api/health"
	domain "salesdesk/internal/domain/availability"
	"salesdesk/internal/metrics"
	"salesdesk/internal/repository/memory"
	"salesdesk/internal/services/availability"
	conversationsvc "salesdesk/internal/services/conversation"
	onboardingsvc "salesdesk/internal/services/onboarding"
	"salesdesk/internal/tools"
	"salesdesk/internal/tools/builtin"
	"salesdesk/pkg/logger"
)

const testLink = "https://calendly.com/lucentiveclub-support/30min"

func newTestRouter(t *testing.T, now time.Time, limit RateLimit) http.Handler {
	t.Helper()

	policy, err := availability.NewWindowPolicy(domain.WindowSpec{
		Open:      domain.ZonedTime{At: domain.LocalTime{Hour: 11}, Zone: "Asia/Jerusalem"},
		Close:     domain.ZonedTime{At: domain.LocalTime{Hour: 20}, Zone: "America/Guatemala"},
		ClosedDay: time.Sunday,
	})
	require.NoError(t, err)
	engine, err := availability.NewEngine(policy, availability.OfferPolicy{
		ImmediateBuffer:  20 * time.Minute,
		DelayedThreshold: 4 * time.Hour,
		FallbackLink:     testLink,
	})
	require.NoError(t, err)

	store := memory.Policy{TTL: time.Hour, MaxEntries: 100}
	conv := conversationsvc.NewService(memory.NewConversationRepository(store), nil, logger.Nop())

	registry := tools.NewRegistry()
	builtin.RegisterAll(registry, builtin.Deps{
		Availability: availability.NewService(engine, availability.FixedClock{At: now}, nil, logger.Nop()),
		Onboarding:   onboardingsvc.NewService(memory.NewOnboardingRepository(store), conv, nil, logger.Nop()),
		Conversation: conv,
		Log:          logger.Nop(),
	})

	cfg := ServerConfig{ServiceName: "salesdesk", Version: "test", RateLimit: limit}
	return NewRouter(cfg, health.New(logger.Nop(), nil, "salesdesk", "test"), registry, logger.Nop())
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

var monday = time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC)

func TestAvailabilityRoutes(t *testing.T) {
	router := newTestRouter(t, monday, RateLimit{})

	rec := do(t, router, http.MethodPost, "/v1/availability", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res domain.Result
	decodeBody(t, rec, &res)
	assert.Equal(t, domain.StatusOpen, res.Status)
	assert.Equal(t, "monday", res.DayName)
	assert.Equal(t, []domain.OfferKind{domain.OfferImmediate, domain.OfferDelayed, domain.OfferSelfService}, res.AvailableOffers)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = do(t, router, http.MethodPost, "/v1/availability", `{"now":"2026-01-04T12:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &res)
	assert.True(t, res.IsSpecialDay)
	assert.Equal(t, testLink, res.FallbackLink)

	rec = do(t, router, http.MethodPost, "/v1/availability/recommendation", `{"excluded_offers":["immediate","delayed"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var recommendation availability.Recommendation
	decodeBody(t, rec, &recommendation)
	assert.Equal(t, domain.OfferSelfService, recommendation.RecommendedAction)
	assert.Contains(t, recommendation.UserSafeMessage, testLink)

	rec = do(t, router, http.MethodGet, "/v1/booking-link", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), testLink)
}

func TestConversationRoutes(t *testing.T) {
	router := newTestRouter(t, monday, RateLimit{})

	rec := do(t, router, http.MethodGet, "/v1/conversations/conv-1/onboarding", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var progress map[string]interface{}
	decodeBody(t, rec, &progress)
	assert.Equal(t, "trading_experience", progress["next_step"])

	rec = do(t, router, http.MethodPatch, "/v1/conversations/conv-1/onboarding",
		`{"step_name":"trading_experience","fields":{"trading_experience":"beginner","budget_amount":"250.50"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeBody(t, rec, &progress)
	assert.Equal(t, "beginner", progress["trading_experience"])
	assert.Equal(t, "bot_recommendation", progress["next_step"])
	assert.Contains(t, progress["message"], "Completed steps: trading_experience")

	rec = do(t, router, http.MethodPatch, "/v1/conversations/conv-1/lead", `{"country":"  Chile "}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"country":"Chile"`)

	rec = do(t, router, http.MethodPost, "/v1/conversations/conv-1/context",
		`{"lead":{"first_name":"Rafa","country":"Unknown"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var restored builtin.RestoreResult
	decodeBody(t, rec, &restored)
	assert.True(t, restored.Restored)
	assert.Equal(t, "Chile", restored.Context.Lead.Country)
	assert.Equal(t, "Rafa", restored.Context.Lead.FirstName)
	require.NotNil(t, restored.Context.Onboarding)
	assert.True(t, restored.Context.Onboarding.BudgetAmount != nil)

	rec = do(t, router, http.MethodPost, "/v1/conversations/conv-1/onboarding/complete", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeBody(t, rec, &progress)
	assert.Equal(t, true, progress["onboarding_complete"])
	assert.Equal(t, "bot_recommendation", progress["next_step"])

	rec = do(t, router, http.MethodPost, "/v1/conversations/conv-1/callback", `{"offer":"delayed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var confirmation availability.Confirmation
	decodeBody(t, rec, &confirmation)
	assert.Equal(t, availability.ConfirmationMessage, confirmation.SuggestedResponse)
}

func TestErrorMapping(t *testing.T) {
	sunday := time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC)
	router := newTestRouter(t, sunday, RateLimit{})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"malformed body", http.MethodPost, "/v1/availability", `{"now":`, http.StatusBadRequest, "invalid_input"},
		{"bad timestamp", http.MethodPost, "/v1/availability", `{"now":"noon"}`, http.StatusBadRequest, "invalid_input"},
		{"unknown step", http.MethodPatch, "/v1/conversations/c/onboarding", `{"step_name":"lunch"}`, http.StatusBadRequest, "invalid_input"},
		{"negative budget", http.MethodPatch, "/v1/conversations/c/onboarding", `{"fields":{"budget_amount":"-1"}}`, http.StatusBadRequest, "invalid_input"},
		{"self service is not a callback", http.MethodPost, "/v1/conversations/c/callback", `{"offer":"self_service"}`, http.StatusBadRequest, "invalid_input"},
		{"callback on closed day", http.MethodPost, "/v1/conversations/c/callback", `{"offer":"delayed"}`, http.StatusConflict, "offer_unavailable"},
		{"unknown tool", http.MethodPost, "/v1/tools/launch_rocket", `{}`, http.StatusNotFound, "not_found"},
		{"unknown route", http.MethodGet, "/v2/nothing", "", http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			var resp ErrorResponse
			decodeBody(t, rec, &resp)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestInvokeTool(t *testing.T) {
	router := newTestRouter(t, monday, RateLimit{})

	rec := do(t, router, http.MethodGet, "/v1/tools", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Tools []tools.Definition `json:"tools"`
	}
	decodeBody(t, rec, &listing)
	assert.Len(t, listing.Tools, 9)

	rec = do(t, router, http.MethodPost, "/v1/tools/"+builtin.ToolUpdateOnboarding,
		`{"conversation_key":"conv-9","step_name":"budget_check","budget_confirmed":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"budget_confirmed":true`)

	rec = do(t, router, http.MethodPost, "/v1/tools/"+builtin.ToolCheckAvailability, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/v1/tools/"+builtin.ToolCheckAvailability, "{oops")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	router := newTestRouter(t, monday, RateLimit{Enabled: true, RPS: 0.001, Burst: 1})

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/v1/booking-link", "").Code)

	rec := do(t, router, http.MethodGet, "/v1/booking-link", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// probes are outside the limited subrouter
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/live", "").Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	router := newTestRouter(t, monday, RateLimit{})

	req := httptest.NewRequest(http.MethodGet, "/v1/booking-link", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))
}

func TestUnmatchedRouteIsTaggedAndCounted(t *testing.T) {
	router := newTestRouter(t, monday, RateLimit{})
	counter := metrics.HTTPRequests.WithLabelValues("unmatched", http.MethodGet, "404")
	before := counterValue(t, counter)

	req := httptest.NewRequest(http.MethodGet, "/v2/nothing", nil)
	req.Header.Set(requestIDHeader, "req-404")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "req-404", rec.Header().Get(requestIDHeader))

	var body ErrorResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, "not_found", body.Code)
	assert.Equal(t, "req-404", body.RequestID)

	assert.Equal(t, before+1, counterValue(t, counter))
}

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
