package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"executorjenkins/internal/api/middleware"
	"executorjenkins/internal/engine"
	"executorjenkins/internal/logger"
	"executorjenkins/internal/storage"
	"executorjenkins/internal/storage/models"
)

// Operation names recorded in audit logs and metrics
const (
	OperationStart  = "start"
	OperationStop   = "stop"
	OperationStatus = "status"
)

// OperationRecorder receives the outcome of each executor call
type OperationRecorder interface {
	RecordExecutorOperation(ctx context.Context, operation string, success bool)
}

// jobNamer is implemented by executors that expose the remote job name
type jobNamer interface {
	JobName(buildID int64) string
}

// BuildsHandler handles build lifecycle requests
type BuildsHandler struct {
	executor engine.Executor
	metrics  OperationRecorder
}

// NewBuildsHandler creates a new BuildsHandler instance. metrics may be nil.
func NewBuildsHandler(executor engine.Executor, metrics OperationRecorder) *BuildsHandler {
	return &BuildsHandler{
		executor: executor,
		metrics:  metrics,
	}
}

// BuildResponse acknowledges a start or stop request
type BuildResponse struct {
	BuildID int64  `json:"buildId"`
	Job     string `json:"job,omitempty"`
	Status  string `json:"status"`
}

// StartBuild handles the POST /api/v1/builds request
func (h *BuildsHandler) StartBuild(w http.ResponseWriter, r *http.Request) {
	var req engine.StartConfig
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.executor.Start(r.Context(), req)
	h.record(r.Context(), OperationStart, err)
	if err != nil {
		logger.Error("Failed to start build", "error", err, "build_id", req.BuildID, "request_id", middleware.GetRequestID(r))
		status := writeError(w, r, err)
		h.audit(r, OperationStart, req.BuildID, status, err)
		return
	}

	h.audit(r, OperationStart, req.BuildID, http.StatusAccepted, nil)
	writeJSON(w, http.StatusAccepted, BuildResponse{
		BuildID: req.BuildID,
		Job:     h.jobName(req.BuildID),
		Status:  "started",
	})
}

// StopBuild handles the POST /api/v1/builds/{id}/stop request
func (h *BuildsHandler) StopBuild(w http.ResponseWriter, r *http.Request) {
	buildID, ok := buildIDFromPath(w, r)
	if !ok {
		return
	}

	err := h.executor.Stop(r.Context(), engine.StopConfig{BuildID: buildID})
	h.record(r.Context(), OperationStop, err)
	if err != nil {
		logger.Error("Failed to stop build", "error", err, "build_id", buildID, "request_id", middleware.GetRequestID(r))
		status := writeError(w, r, err)
		h.audit(r, OperationStop, buildID, status, err)
		return
	}

	h.audit(r, OperationStop, buildID, http.StatusOK, nil)
	writeJSON(w, http.StatusOK, BuildResponse{
		BuildID: buildID,
		Job:     h.jobName(buildID),
		Status:  "stopped",
	})
}

// GetBuild handles the GET /api/v1/builds/{id} request
func (h *BuildsHandler) GetBuild(w http.ResponseWriter, r *http.Request) {
	buildID, ok := buildIDFromPath(w, r)
	if !ok {
		return
	}

	status, err := h.executor.Status(r.Context(), engine.StatusConfig{BuildID: buildID})
	h.record(r.Context(), OperationStatus, err)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (h *BuildsHandler) jobName(buildID int64) string {
	if namer, ok := h.executor.(jobNamer); ok {
		return namer.JobName(buildID)
	}
	return ""
}

func (h *BuildsHandler) record(ctx context.Context, operation string, err error) {
	if h.metrics != nil {
		h.metrics.RecordExecutorOperation(ctx, operation, err == nil)
	}
}

// audit writes the outcome of a start or stop call. Failures are logged only.
func (h *BuildsHandler) audit(r *http.Request, operation string, buildID int64, status int, err error) {
	entry := models.AuditLog{
		Timestamp: time.Now(),
		KeyID:     middleware.KeyFingerprint(middleware.APIKeyFromContext(r.Context())),
		Method:    r.Method,
		Path:      r.URL.Path,
		Status:    status,
		Operation: operation,
		BuildID:   buildID,
		JobName:   h.jobName(buildID),
		Result:    "success",
	}
	if err != nil {
		entry.Result = "failed"
		entry.Error = err.Error()
	}

	if err := storage.InsertAuditLog(entry); err != nil {
		logger.Warn("Failed to write audit log", "error", err, "operation", operation, "build_id", buildID)
	}
}

func buildIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	buildID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || buildID <= 0 {
		writeErrorWithRequestID(w, r, http.StatusBadRequest, "build id must be a positive integer")
		return 0, false
	}
	return buildID, true
}
