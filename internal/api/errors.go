package api

import (
	"encoding/json"
	"net/http"

	"salesdesk/pkg/errors"
	"salesdesk/pkg/logger"
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps the error vocabulary onto HTTP status codes
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errors.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, errors.ErrOfferUnavailable):
		return http.StatusConflict, "offer_unavailable"
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errors.ErrRateLimitExceeded):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, errors.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error, log *logger.Logger) {
	status, code := statusFor(err)
	resp := ErrorResponse{
		Error:     err.Error(),
		Code:      code,
		RequestID: RequestIDFromContext(r.Context()),
	}

	var vErr *errors.ValidationError
	if errors.As(err, &vErr) {
		resp.Field = vErr.Field
	}

	if status >= http.StatusInternalServerError {
		log.ErrorWithContext(r.Context(), err, map[string]string{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": resp.RequestID,
		})
		if status == http.StatusInternalServerError {
			resp.Error = errors.ErrInternal.Error()
		}
	} else {
		log.Debugw("Request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
