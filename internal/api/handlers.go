package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"salesdesk/internal/domain/conversation"
	"salesdesk/internal/domain/onboarding"
	"salesdesk/internal/tools"
	"salesdesk/internal/tools/builtin"
	"salesdesk/pkg/errors"
	"salesdesk/pkg/logger"
)

const maxBodyBytes = 64 << 10

// Handler exposes the tool registry over REST. Every route executes the same
// wrapped tool the orchestration layer would call.
type Handler struct {
	registry *tools.Registry
	log      *logger.Logger
}

func NewHandler(registry *tools.Registry, log *logger.Logger) *Handler {
	return &Handler{
		registry: registry,
		log:      log.With("component", "http_api"),
	}
}

func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var args builtin.AvailabilityArgs
	if !h.decode(w, r, &args) {
		return
	}
	h.run(w, r, builtin.ToolCheckAvailability, args)
}

func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var args builtin.AvailabilityArgs
	if !h.decode(w, r, &args) {
		return
	}
	h.run(w, r, builtin.ToolRecommendation, args)
}

func (h *Handler) BookingLink(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, builtin.ToolBookingLink, nil)
}

func (h *Handler) ConfirmCallback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Offer string `json:"offer"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	h.run(w, r, builtin.ToolConfirmCallback, builtin.CallbackArgs{
		ConversationKey: pathKey(r),
		Offer:           body.Offer,
	})
}

func (h *Handler) GetOnboarding(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, builtin.ToolGetOnboarding, builtin.KeyArgs{ConversationKey: pathKey(r)})
}

func (h *Handler) UpdateOnboarding(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StepName string            `json:"step_name"`
		Fields   onboarding.Fields `json:"fields"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	h.run(w, r, builtin.ToolUpdateOnboarding, builtin.OnboardingUpdateArgs{
		ConversationKey: pathKey(r),
		StepName:        body.StepName,
		Fields:          body.Fields,
	})
}

func (h *Handler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, builtin.ToolCompleteOnboarding, builtin.KeyArgs{ConversationKey: pathKey(r)})
}

func (h *Handler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	var fields conversation.LeadFields
	if !h.decode(w, r, &fields) {
		return
	}
	h.run(w, r, builtin.ToolUpdateLead, builtin.LeadUpdateArgs{
		ConversationKey: pathKey(r),
		LeadFields:      fields,
	})
}

func (h *Handler) RestoreContext(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Lead       conversation.LeadInfo `json:"lead"`
		Onboarding *onboarding.State     `json:"onboarding"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	h.run(w, r, builtin.ToolRestoreContext, builtin.RestoreArgs{
		ConversationKey: pathKey(r),
		Lead:            body.Lead,
		Onboarding:      body.Onboarding,
	})
}

func (h *Handler) ListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": h.registry.Definitions()})
}

// InvokeTool passes the raw JSON body to the named tool
func (h *Handler) InvokeTool(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, errors.NewValidationError("body", "unreadable request body", err.Error()), h.log)
		return
	}
	var args interface{}
	if len(raw) > 0 {
		if !json.Valid(raw) {
			writeError(w, r, errors.NewValidationError("body", "malformed JSON", nil), h.log)
			return
		}
		args = json.RawMessage(raw)
	}
	h.run(w, r, mux.Vars(r)["name"], args)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, tool string, args interface{}) {
	out, err := h.registry.Execute(r.Context(), tool, args)
	if err != nil {
		writeError(w, r, err, h.log)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// decode reads an optional JSON body; an empty body leaves dst untouched
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && err != io.EOF {
		writeError(w, r, errors.NewValidationError("body", "malformed JSON", err.Error()), h.log)
		return false
	}
	return true
}

func pathKey(r *http.Request) string {
	return mux.Vars(r)["key"]
}
