package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"executorjenkins/internal/api/middleware"
	"executorjenkins/internal/apperrors"
	"executorjenkins/internal/logger"
)

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err, "status", status)
	}
}

// writeErrorWithRequestID writes a standardized error response with optional request ID
func writeErrorWithRequestID(w http.ResponseWriter, r *http.Request, status int, message string) {
	response := map[string]interface{}{
		"error":  message,
		"status": http.StatusText(status),
	}

	if r != nil {
		if requestID := middleware.GetRequestID(r); requestID != "" {
			response["request_id"] = requestID
		}
	}

	writeJSON(w, status, response)
}

// writeError maps err to a status code and writes it.
// Unclassified errors are logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) int {
	status := apperrors.HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "error", err, "request_id", middleware.GetRequestID(r))
		message = "internal error"
	}
	writeErrorWithRequestID(w, r, status, message)
	return status
}

// decodeJSON decodes the request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeErrorWithRequestID(w, r, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		logger.Warn("Failed to parse request body", "error", err, "request_id", middleware.GetRequestID(r))
		writeErrorWithRequestID(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
