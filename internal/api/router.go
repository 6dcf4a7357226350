package api

import (
	"context"
	"net/http"
	"strings"

	"executorjenkins/internal/api/handlers"
	"executorjenkins/internal/api/middleware"
	"executorjenkins/internal/config"
	"executorjenkins/internal/engine"
	"executorjenkins/internal/logger"
	"executorjenkins/internal/observability"
	"executorjenkins/internal/storage"
)

// Version is reported by the root endpoint
const Version = "1.0.0"

// StateReporter exposes the circuit breaker state for health checks
type StateReporter interface {
	State() string
}

// Dependencies are the collaborators the router serves. Metrics, MetricsHandler
// and Breaker are optional.
type Dependencies struct {
	Executor       engine.Executor
	Breaker        StateReporter
	Metrics        *observability.Metrics
	MetricsHandler http.Handler
}

// Router represents the API router
type Router struct {
	mux            *http.ServeMux
	handler        http.Handler
	allowedOrigins []string
	breaker        StateReporter
}

// NewRouter creates a new Router instance
func NewRouter(cfg config.Config, deps Dependencies) *Router {
	mux := http.NewServeMux()
	r := &Router{
		mux:            mux,
		allowedOrigins: cfg.Server.AllowedOrigins,
		breaker:        deps.Breaker,
	}

	var (
		opRecorder   handlers.OperationRecorder
		httpRecorder middleware.HTTPRecorder
	)
	if deps.Metrics != nil {
		opRecorder = deps.Metrics
		httpRecorder = deps.Metrics
	}

	buildsHandler := handlers.NewBuildsHandler(deps.Executor, opRecorder)
	auditHandler := handlers.NewAuditHandler()
	authMiddleware := middleware.NewAuthMiddleware(cfg.API)
	protect := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Middleware(h)
	}

	// Public routes
	mux.HandleFunc("GET /{$}", r.handleRoot)
	mux.HandleFunc("GET /health", r.handleHealth)
	if deps.MetricsHandler != nil {
		mux.Handle("GET /metrics", deps.MetricsHandler)
	}

	// Protected routes
	mux.Handle("POST /api/v1/builds", protect(buildsHandler.StartBuild))
	mux.Handle("POST /api/v1/builds/{id}/stop", protect(buildsHandler.StopBuild))
	mux.Handle("GET /api/v1/builds/{id}", protect(buildsHandler.GetBuild))
	mux.Handle("GET /api/v1/audit", protect(auditHandler.GetAuditLogs))

	// Recovery -> RequestID -> Metrics -> BodySizeLimit -> CORS -> Mux
	r.handler = chainMiddleware(
		mux,
		middleware.Recovery,
		middleware.RequestIDMiddleware,
		middleware.Metrics(httpRecorder),
		middleware.LimitBodySize(cfg.Server.MaxBodySize),
		r.corsMiddleware,
	)

	return r
}

// ServeHTTP implements the http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func (r *Router) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Jenkins executor API",
		"version": Version,
		"endpoints": []string{
			"GET /health - Health check",
			"GET /metrics - Prometheus metrics",
			"POST /api/v1/builds - Start a build",
			"POST /api/v1/builds/{id}/stop - Stop a build",
			"GET /api/v1/builds/{id} - Get build status",
			"GET /api/v1/audit - Get audit logs",
		},
	})
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	response := map[string]interface{}{
		"status": "healthy",
	}
	if r.breaker != nil {
		// An open breaker is reported but does not fail the check
		response["breaker"] = r.breaker.State()
	}

	if err := pingDatabase(req.Context()); err != nil {
		logger.Error("Health check failed", "error", err)
		response["status"] = "unhealthy"
		response["error"] = "database connection failed"
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func pingDatabase(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return storage.Ping()
}

// chainMiddleware chains multiple middleware functions together
func chainMiddleware(handler http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// corsMiddleware handles CORS headers and preflight requests
func (r *Router) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		origin := req.Header.Get("Origin")

		if len(r.allowedOrigins) == 0 {
			// Empty allowed origins means allow all
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			if !r.isValidOrigin(origin) {
				logger.Warn("Invalid origin format", "origin", origin, "request_id", middleware.GetRequestID(req))
			} else if r.isOriginAllowed(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			} else {
				logger.Warn("Origin not allowed", "origin", origin, "request_id", middleware.GetRequestID(req))
			}
		}
		// Same-origin requests carry no Origin header and proceed without CORS headers

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, req)
	})
}

// isValidOrigin validates the origin format (must be http:// or https://)
func (r *Router) isValidOrigin(origin string) bool {
	return strings.HasPrefix(origin, "http://") || strings.HasPrefix(origin, "https://")
}

// isOriginAllowed checks if the given origin is in the allowed list
func (r *Router) isOriginAllowed(origin string) bool {
	for _, allowed := range r.allowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}
