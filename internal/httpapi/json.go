package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"insight/backend/internal/research"
)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return err
	}
	if decoder.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

// writeResearchError maps pipeline failures to a status and a single opaque
// message.
func writeResearchError(w http.ResponseWriter, err error) {
	status, code := classifyError(err)
	if status >= http.StatusInternalServerError {
		log.Warn().Err(err).Int("status", status).Str("code", code).Msg("research request failed")
	}
	writeError(w, status, code, err.Error())
}

func classifyError(err error) (int, string) {
	var validationErr *research.ValidationError
	var schemaErr *research.SchemaViolationError
	var upstreamErr *research.UpstreamError

	switch {
	case errors.As(err, &validationErr):
		if validationErr.TooLarge {
			return http.StatusRequestEntityTooLarge, "file_too_large"
		}
		if errors.Is(err, research.ErrUnsupportedFormat) {
			return http.StatusBadRequest, "unsupported_file_type"
		}
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "canceled"
	case errors.Is(err, research.ErrUnsupportedFormat):
		return http.StatusBadRequest, "unsupported_file_type"
	case errors.Is(err, research.ErrCorruptDocument):
		return http.StatusUnprocessableEntity, "unreadable_document"
	case errors.As(err, &schemaErr):
		return http.StatusBadGateway, "schema_violation"
	case errors.As(err, &upstreamErr):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
