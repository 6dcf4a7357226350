package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNewMetrics(t *testing.T) {
	t.Parallel()
	metrics, handler, err := NewMetrics(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, metrics)
	assert.NotNil(t, handler)
}

func TestRecordHTTPRequest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	metrics, handler, err := NewMetrics(ctx)
	require.NoError(t, err)

	metrics.RecordHTTPRequest(ctx, "GET", "/health", 200, 0.001)
	metrics.RecordHTTPRequest(ctx, "POST", "/api/v1/builds", 202, 0.050)
	metrics.RecordHTTPRequest(ctx, "POST", "/api/v1/builds/42/stop", 409, 0.010)

	out := scrape(t, handler)
	assert.Contains(t, out, "http_requests_total")
	assert.Contains(t, out, "http_errors_total")
	assert.Contains(t, out, `path="/api/v1/builds/{id}/stop"`)
	assert.Contains(t, out, `status="4xx"`)
}

func TestRecordJenkinsAndBreakerMetrics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	metrics, handler, err := NewMetrics(ctx)
	require.NoError(t, err)

	metrics.RecordJenkinsCall(ctx, "job.exists", true, 0.02)
	metrics.RecordJenkinsCall(ctx, "job.build", false, 1.5)
	metrics.RecordBreakerTransition(ctx, "closed", "open")
	metrics.RecordExecutorOperation(ctx, "start", false)

	out := scrape(t, handler)
	assert.Contains(t, out, "jenkins_calls_total")
	assert.Contains(t, out, "jenkins_call_errors_total")
	assert.Contains(t, out, `operation="job.build"`)
	assert.Contains(t, out, "breaker_transitions_total")
	assert.Contains(t, out, `to="open"`)
	assert.Contains(t, out, "executor_operations_total")
}

func TestNormalizePath(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input    string
		expected string
	}{
		{"/health", "/health"},
		{"/metrics", "/metrics"},
		{"/api/v1/builds", "/api/v1/builds"},
		{"/api/v1/builds/", "/api/v1/builds/"},
		{"/api/v1/builds/1993", "/api/v1/builds/{id}"},
		{"/api/v1/builds/1993/stop", "/api/v1/builds/{id}/stop"},
		{"/api/v1/audit", "/api/v1/audit"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalizePath(tt.input), tt.input)
	}
}
