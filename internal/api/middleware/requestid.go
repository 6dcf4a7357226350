package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"executorjenkins/internal/logger"
)

// RequestIDContextKey is the context key for the request ID
const RequestIDContextKey ContextKey = "request_id"

// maxRequestIDLength bounds caller-supplied ids echoed into logs and headers
const maxRequestIDLength = 128

// GetRequestID extracts the request ID from the request context
func GetRequestID(r *http.Request) string {
	if requestID, ok := r.Context().Value(RequestIDContextKey).(string); ok {
		return requestID
	}
	return ""
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
		r = r.WithContext(ctx)

		w.Header().Set("X-Request-ID", requestID)

		logger.Info("Request received", "request_id", requestID, "method", r.Method, "path", r.URL.Path, "ip", r.RemoteAddr)

		next.ServeHTTP(w, r)
	})
}
