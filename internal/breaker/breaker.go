// Package breaker guards remote CI calls with a shared circuit breaker.
//
// Every operation goes through the same circuit, so failures against one job
// fast-fail calls for all other jobs until the cooldown elapses. Only errors
// that say something about server health count against the circuit, and only
// read-only operations are retried.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"executorjenkins/internal/apperrors"
	"executorjenkins/internal/engine"
	"executorjenkins/internal/logger"
)

// MetricsRecorder receives call outcomes and state transitions.
type MetricsRecorder interface {
	RecordJenkinsCall(ctx context.Context, operation string, success bool, durationSeconds float64)
	RecordBreakerTransition(ctx context.Context, from, to string)
}

// Config holds configuration for the breaker.
type Config struct {
	Name           string
	Threshold      int           // Consecutive failures before the circuit opens (default: 5)
	Cooldown       time.Duration // Time before half-open (default: 30s)
	MaxAttempts    int           // Attempts per call, 1 disables retry (default: 1)
	BackoffInitial time.Duration // default: 100ms
	BackoffMax     time.Duration // default: 5s
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Name:           "jenkins",
		Threshold:      5,
		Cooldown:       30 * time.Second,
		MaxAttempts:    1,
		BackoffInitial: 100 * time.Millisecond,
		BackoffMax:     5 * time.Second,
	}
}

// Breaker wraps an invoker with a circuit breaker and optional retry.
// It is safe for concurrent use.
type Breaker struct {
	cb      *gobreaker.CircuitBreaker
	inner   engine.Invoker
	cfg     Config
	metrics MetricsRecorder
}

var _ engine.Invoker = (*Breaker)(nil)

// New creates a breaker around inner. metrics may be nil.
func New(cfg Config, inner engine.Invoker, metrics MetricsRecorder) *Breaker {
	def := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = def.BackoffInitial
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = def.BackoffMax
	}

	b := &Breaker{
		inner:   inner,
		cfg:     cfg,
		metrics: metrics,
	}

	threshold := uint32(cfg.Threshold)
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: b.onStateChange,
		IsSuccessful:  healthy,
	})
	return b
}

// Invoke runs op through the circuit, retrying temporary failures of
// idempotent operations with exponential backoff. The last error is returned unchanged, except that
// circuit rejections are marked as apperrors.ErrUnavailable.
func (b *Breaker) Invoke(ctx context.Context, op engine.Operation) (any, error) {
	var lastErr error
	for attempt := 1; attempt <= b.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			wait := b.backoff(attempt - 1)
			logger.Debug("Retrying remote call", "operation", op.Key(), "attempt", attempt, "backoff", wait)
			select {
			case <-ctx.Done():
				return nil, lastErr
			case <-time.After(wait):
			}
		}

		res, err := b.execute(ctx, op)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if !retryable(ctx, op, err) {
			break
		}
	}
	return nil, lastErr
}

// State returns the circuit state: "closed", "half-open" or "open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Counts returns the failure counters of the current generation.
func (b *Breaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}

func (b *Breaker) execute(ctx context.Context, op engine.Operation) (any, error) {
	start := time.Now()
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Invoke(ctx, op)
	})

	if b.metrics != nil {
		b.metrics.RecordJenkinsCall(ctx, op.Key(), err == nil, time.Since(start).Seconds())
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s: %w", apperrors.ErrUnavailable, op.Key(), err)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (b *Breaker) onStateChange(name string, from, to gobreaker.State) {
	logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
	if b.metrics != nil {
		b.metrics.RecordBreakerTransition(context.Background(), from.String(), to.String())
	}
}

// backoff calculates exponential backoff for a given retry.
// Retry 1 returns the initial delay, retry 2 returns twice that, etc.
func (b *Breaker) backoff(retry int) time.Duration {
	d := float64(b.cfg.BackoffInitial) * math.Pow(2.0, float64(retry-1))
	if d > float64(b.cfg.BackoffMax) {
		d = float64(b.cfg.BackoffMax)
	}
	return time.Duration(d)
}

// healthy reports whether err leaves the server's health unquestioned.
// Local rejections, cancellation and client errors other than 429 do.
func healthy(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, engine.ErrInvalidOperation):
		return true
	}
	var up interface{ Upstream() int }
	if errors.As(err, &up) {
		code := up.Upstream()
		return code >= 400 && code < 500 && code != http.StatusTooManyRequests
	}
	return false
}

// retryable reports whether another attempt may succeed without repeating a
// side effect
func retryable(ctx context.Context, op engine.Operation, err error) bool {
	if ctx.Err() != nil || !op.Idempotent() {
		return false
	}
	if errors.Is(err, apperrors.ErrUnavailable) {
		return false
	}
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}
