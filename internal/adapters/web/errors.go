package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"order-desk/internal/core"

	"go.uber.org/zap"
)

type errorResponse struct {
	Success   bool              `json:"success"`
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Fields    []core.FieldError `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorResponse(w, status, errorResponse{
		Error:     message,
		Code:      code,
		RequestID: core.RequestIDFromContext(r.Context()),
	})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeServiceError maps the core error taxonomy onto HTTP status codes.
// Persistence failures are logged here and reported without driver detail.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{RequestID: core.RequestIDFromContext(r.Context())}
	var status int

	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		status, resp.Code, resp.Error, resp.Fields = http.StatusBadRequest, "VALIDATION_ERROR", "validation failed", verr.Fields
	case errors.Is(err, core.ErrNotFound):
		status, resp.Code, resp.Error = http.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.Is(err, core.ErrConflict):
		status, resp.Code, resp.Error = http.StatusConflict, "CONFLICT", err.Error()
	default:
		h.log.Error("request failed",
			zap.String("request_id", resp.RequestID),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		status, resp.Code, resp.Error = http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
	writeErrorResponse(w, status, resp)
}

// writeJSON writes a success envelope with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeStatus(w, http.StatusOK, "", v)
}

// writeCreated writes a success envelope with status 201.
func writeCreated(w http.ResponseWriter, message string, v any) {
	writeStatus(w, http.StatusCreated, message, v)
}

func writeStatus(w http.ResponseWriter, status int, message string, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successResponse{Success: true, Message: message, Data: v})
}
