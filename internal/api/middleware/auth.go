package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"executorjenkins/internal/config"
	"executorjenkins/internal/logger"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// APIKeyContextKey is the context key for the API key
const APIKeyContextKey ContextKey = "api_key"

// AuthMiddleware is an HTTP middleware that validates API keys
type AuthMiddleware struct {
	apiKeys [][]byte
}

// NewAuthMiddleware creates a new AuthMiddleware instance
func NewAuthMiddleware(cfg config.APIConfig) *AuthMiddleware {
	apiKeys := make([][]byte, 0, len(cfg.Keys))
	for _, key := range cfg.Keys {
		if key != "" {
			apiKeys = append(apiKeys, []byte(key))
		}
	}

	return &AuthMiddleware{
		apiKeys: apiKeys,
	}
}

// ValidateAPIKey returns true if the API key is configured
func (am *AuthMiddleware) ValidateAPIKey(apiKey string) bool {
	apiKey = strings.TrimSpace(strings.TrimPrefix(apiKey, "Bearer "))
	if apiKey == "" {
		return false
	}
	candidate := []byte(apiKey)
	valid := false
	for _, key := range am.apiKeys {
		if subtle.ConstantTimeCompare(candidate, key) == 1 {
			valid = true
		}
	}
	return valid
}

// GetAPIKey extracts the API key from the request
// Only supports Authorization header for security reasons (query parameters can be logged)
func GetAPIKey(r *http.Request) string {
	// Only get API key from Authorization header
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		// Remove Bearer prefix if present
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}

// Middleware returns an HTTP handler that validates API keys
func (am *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Get the API key from the request
		apiKey := GetAPIKey(r)

		if !am.ValidateAPIKey(apiKey) {
			logger.Warn("Invalid API key", "ip", r.RemoteAddr, "path", r.URL.Path, "request_id", GetRequestID(r))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		// Handlers attribute audit entries to the caller's key
		ctx := context.WithValue(r.Context(), APIKeyContextKey, strings.TrimSpace(apiKey))
		r = r.WithContext(ctx)

		next.ServeHTTP(w, r)
	})
}

// KeyFingerprint identifies an API key in logs and audit records without
// revealing it: the first 8 hex characters of its SHA-256 digest.
func KeyFingerprint(apiKey string) string {
	if apiKey == "" {
		return "unknown"
	}
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])[:8]
}

// APIKeyFromContext returns the API key stored by the auth middleware
func APIKeyFromContext(ctx context.Context) string {
	if apiKey, ok := ctx.Value(APIKeyContextKey).(string); ok {
		return apiKey
	}
	return ""
}
