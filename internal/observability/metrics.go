package observability

import (
	"context"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds all application metrics:
// - HTTP: latency, traffic and errors of the API surface
// - Jenkins: latency, traffic and errors of remote calls
// - Breaker: circuit state transitions
// - Executor: start/stop/status outcomes
type Metrics struct {
	meter metric.Meter

	// HTTP metrics
	HTTPRequestDuration metric.Float64Histogram
	HTTPRequestsTotal   metric.Int64Counter
	HTTPErrorsTotal     metric.Int64Counter

	// Remote call metrics
	JenkinsCallDuration    metric.Float64Histogram
	JenkinsCallsTotal      metric.Int64Counter
	JenkinsCallErrorsTotal metric.Int64Counter

	BreakerTransitions metric.Int64Counter
	ExecutorOperations metric.Int64Counter
}

// NewMetrics creates all metrics behind a Prometheus exporter with its own
// registry and returns the scrape handler for that registry.
func NewMetrics(ctx context.Context) (*Metrics, http.Handler, error) {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("executor-jenkins")
	m := &Metrics{meter: meter}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPErrorsTotal, err = meter.Int64Counter(
		"http_errors_total",
		metric.WithDescription("Total number of HTTP errors (4xx and 5xx)"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JenkinsCallDuration, err = meter.Float64Histogram(
		"jenkins_call_duration_seconds",
		metric.WithDescription("Jenkins API call latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JenkinsCallsTotal, err = meter.Int64Counter(
		"jenkins_calls_total",
		metric.WithDescription("Total number of Jenkins API calls"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JenkinsCallErrorsTotal, err = meter.Int64Counter(
		"jenkins_call_errors_total",
		metric.WithDescription("Total number of failed or rejected Jenkins API calls"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.BreakerTransitions, err = meter.Int64Counter(
		"breaker_transitions_total",
		metric.WithDescription("Total number of circuit breaker state changes"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.ExecutorOperations, err = meter.Int64Counter(
		"executor_operations_total",
		metric.WithDescription("Total number of start, stop and status operations"),
	)
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	attrs := metric.WithAttributes(
		methodAttr(method),
		pathAttr(path),
		statusAttr(statusCode),
	)

	m.HTTPRequestDuration.Record(ctx, durationSeconds, attrs)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)

	if statusCode >= 400 {
		m.HTTPErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordJenkinsCall records one remote call attempt.
func (m *Metrics) RecordJenkinsCall(ctx context.Context, operation string, success bool, durationSeconds float64) {
	attrs := metric.WithAttributes(operationAttr(operation))
	m.JenkinsCallDuration.Record(ctx, durationSeconds, attrs, WithSuccess(success))
	m.JenkinsCallsTotal.Add(ctx, 1, attrs)

	if !success {
		m.JenkinsCallErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordBreakerTransition records a circuit state change.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, from, to string) {
	m.BreakerTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrFrom, from),
		attribute.String(attrTo, to),
	))
}

// RecordExecutorOperation records the outcome of a start, stop or status call.
func (m *Metrics) RecordExecutorOperation(ctx context.Context, operation string, success bool) {
	m.ExecutorOperations.Add(ctx, 1, WithOperation(operation), WithSuccess(success))
}
