package handlers

import (
	"net/http"
	"strconv"

	"executorjenkins/internal/api/middleware"
	"executorjenkins/internal/logger"
	"executorjenkins/internal/storage"
	"executorjenkins/internal/storage/models"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// AuditHandler handles audit log-related API requests
type AuditHandler struct{}

// NewAuditHandler creates a new AuditHandler instance
func NewAuditHandler() *AuditHandler {
	return &AuditHandler{}
}

// GetAuditLogs handles the GET /api/v1/audit request
func (h *AuditHandler) GetAuditLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var (
		logs []models.AuditLog
		err  error
	)
	if buildIDStr := query.Get("build_id"); buildIDStr != "" {
		buildID, parseErr := strconv.ParseInt(buildIDStr, 10, 64)
		if parseErr != nil || buildID <= 0 {
			writeErrorWithRequestID(w, r, http.StatusBadRequest, "build_id must be a positive integer")
			return
		}
		logs, err = storage.GetAuditLogsForBuild(buildID)
	} else {
		limit, offset := paginate(query.Get("limit"), query.Get("offset"))
		logs, err = storage.GetAuditLogs(limit, offset)
	}

	if err != nil {
		logger.Error("Failed to get audit logs", "error", err, "request_id", middleware.GetRequestID(r))
		writeErrorWithRequestID(w, r, http.StatusInternalServerError, "Failed to get audit logs")
		return
	}

	writeJSON(w, http.StatusOK, logs)
}

// paginate parses limit and offset, falling back to defaults on bad input
func paginate(limitStr, offsetStr string) (int, int) {
	limit := defaultAuditLimit
	offset := 0

	if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
		limit = min(parsed, maxAuditLimit)
	}
	if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
		offset = parsed
	}

	return limit, offset
}
