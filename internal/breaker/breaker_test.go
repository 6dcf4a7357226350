package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"executorjenkins/internal/apperrors"
	"executorjenkins/internal/engine"
)

type tempErr struct {
	temporary bool
}

func (e *tempErr) Error() string   { return "remote failure" }
func (e *tempErr) Temporary() bool { return e.temporary }

// statusErr mimics an HTTP error returned by the remote server
type statusErr struct {
	code int
}

func (e *statusErr) Error() string   { return "remote status" }
func (e *statusErr) Upstream() int   { return e.code }
func (e *statusErr) Temporary() bool { return e.code >= 500 || e.code == 429 }

type recorder struct {
	mu          sync.Mutex
	calls       []string
	successes   int
	transitions [][2]string
}

func (r *recorder) RecordJenkinsCall(_ context.Context, op string, success bool, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, op)
	if success {
		r.successes++
	}
}

func (r *recorder) RecordBreakerTransition(_ context.Context, from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, [2]string{from, to})
}

// scripted returns the given errors in order, then succeeds
func scripted(calls *atomic.Int32, errs ...error) engine.Invoker {
	return engine.InvokerFunc(func(_ context.Context, _ engine.Operation) (any, error) {
		n := int(calls.Add(1))
		if n <= len(errs) {
			return nil, errs[n-1]
		}
		return "ok", nil
	})
}

var getJob = engine.NewOperation(engine.ModuleJob, engine.ActionGet, "SD-1")

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()

	assert.Equal(t, 5, cfg.Threshold)
	assert.Equal(t, 30*time.Second, cfg.Cooldown)
	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.BackoffInitial)
	assert.Equal(t, 5*time.Second, cfg.BackoffMax)
}

func TestNew_WithZeroValues(t *testing.T) {
	t.Parallel()
	b := New(Config{}, scripted(new(atomic.Int32)), nil)

	assert.Equal(t, DefaultConfig(), b.cfg)
	assert.Equal(t, "closed", b.State())
}

func TestInvoke_PassesResultThrough(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	b := New(DefaultConfig(), scripted(&calls), nil)

	res, err := b.Invoke(context.Background(), getJob)
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvoke_ReturnsErrorUnchanged(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	b := New(DefaultConfig(), scripted(new(atomic.Int32), boom), nil)

	_, err := b.Invoke(context.Background(), getJob)
	assert.Same(t, boom, err)
}

func TestInvoke_OpensAfterThreshold(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	boom := errors.New("boom")
	rec := &recorder{}
	b := New(Config{Threshold: 3, Cooldown: time.Hour}, scripted(&calls, boom, boom, boom), rec)

	for i := 0; i < 3; i++ {
		_, err := b.Invoke(context.Background(), getJob)
		assert.Same(t, boom, err)
	}
	assert.Equal(t, "open", b.State())

	// Rejected without reaching the wrapped invoker
	_, err := b.Invoke(context.Background(), getJob)
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.Equal(t, int32(3), calls.Load())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, [][2]string{{"closed", "open"}}, rec.transitions)
	assert.Len(t, rec.calls, 4)
	assert.Zero(t, rec.successes)
}

func TestInvoke_FailuresAreSharedAcrossOperations(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	boom := errors.New("boom")
	b := New(Config{Threshold: 2, Cooldown: time.Hour}, scripted(&calls, boom, boom), nil)

	_, _ = b.Invoke(context.Background(), engine.NewOperation(engine.ModuleJob, engine.ActionExists, "SD-1"))
	_, _ = b.Invoke(context.Background(), engine.NewOperation(engine.ModuleBuild, engine.ActionStop, "SD-2", int64(1)))

	_, err := b.Invoke(context.Background(), engine.NewOperation(engine.ModuleJob, engine.ActionGet, "SD-3"))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), calls.Load())
}

func TestInvoke_HalfOpenRecovers(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	b := New(Config{Threshold: 1, Cooldown: 20 * time.Millisecond}, scripted(new(atomic.Int32), boom), nil)

	_, err := b.Invoke(context.Background(), getJob)
	assert.Same(t, boom, err)
	assert.Equal(t, "open", b.State())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, "half-open", b.State())

	res, err := b.Invoke(context.Background(), getJob)
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, "closed", b.State())
}

func TestInvoke_ErrorsThatDoNotTrip(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
	}{
		{"not found", &statusErr{code: 404}},
		{"forbidden", &statusErr{code: 403}},
		{"canceled", context.Canceled},
		{"wrapped cancel", fmt.Errorf("get job: %w", context.Canceled)},
		{"validation", apperrors.Validation("job", "invalid job name format: ../x")},
		{"invalid operation", fmt.Errorf("%w: unsupported remote operation queue.cancel", engine.ErrInvalidOperation)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			const threshold = 3
			errs := make([]error, threshold+1)
			for i := range errs {
				errs[i] = tt.err
			}
			var calls atomic.Int32
			rec := &recorder{}
			b := New(Config{Threshold: threshold, Cooldown: time.Hour}, scripted(&calls, errs...), rec)

			for range errs {
				_, err := b.Invoke(context.Background(), getJob)
				assert.Same(t, tt.err, err)
			}
			assert.Equal(t, "closed", b.State())
			assert.Equal(t, int32(threshold+1), calls.Load())
			assert.Zero(t, b.Counts().ConsecutiveFailures)

			res, err := b.Invoke(context.Background(), getJob)
			require.NoError(t, err)
			assert.Equal(t, "ok", res)

			rec.mu.Lock()
			defer rec.mu.Unlock()
			assert.Empty(t, rec.transitions)
		})
	}
}

func TestInvoke_ServerErrorsTrip(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
	}{
		{"internal error", &statusErr{code: 500}},
		{"bad gateway", &statusErr{code: 502}},
		{"rate limited", &statusErr{code: 429}},
		{"deadline", context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var calls atomic.Int32
			b := New(Config{Threshold: 2, Cooldown: time.Hour}, scripted(&calls, tt.err, tt.err), nil)

			for i := 0; i < 2; i++ {
				_, err := b.Invoke(context.Background(), getJob)
				assert.Same(t, tt.err, err)
			}
			assert.Equal(t, "open", b.State())

			_, err := b.Invoke(context.Background(), getJob)
			assert.ErrorIs(t, err, apperrors.ErrUnavailable)
			assert.Equal(t, int32(2), calls.Load())
		})
	}
}

func TestInvoke_RetriesTemporaryErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	temp := &tempErr{temporary: true}
	b := New(Config{MaxAttempts: 3, BackoffInitial: time.Millisecond}, scripted(&calls, temp, temp), nil)

	res, err := b.Invoke(context.Background(), getJob)
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, int32(3), calls.Load())
}

func TestInvoke_ReturnsLastErrorWhenAttemptsExhausted(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	first, last := &tempErr{temporary: true}, &tempErr{temporary: true}
	b := New(Config{MaxAttempts: 2, BackoffInitial: time.Millisecond}, scripted(&calls, first, last), nil)

	_, err := b.Invoke(context.Background(), getJob)
	assert.Same(t, last, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestInvoke_RetriesOnlyReadOnlyOperations(t *testing.T) {
	t.Parallel()
	tests := []struct {
		op    engine.Operation
		calls int32
	}{
		{engine.NewOperation(engine.ModuleJob, engine.ActionExists, "SD-1"), 3},
		{engine.NewOperation(engine.ModuleJob, engine.ActionGet, "SD-1"), 3},
		{engine.NewOperation(engine.ModuleBuild, engine.ActionGet, "SD-1", int64(4)), 3},
		{engine.NewOperation(engine.ModuleJob, engine.ActionCreate, "SD-1", "<project/>"), 1},
		{engine.NewOperation(engine.ModuleJob, engine.ActionBuild, "SD-1", nil), 1},
		{engine.NewOperation(engine.ModuleBuild, engine.ActionStop, "SD-1", int64(4)), 1},
		{engine.NewOperation(engine.ModuleJob, engine.ActionDestroy, "SD-1"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.op.Key(), func(t *testing.T) {
			t.Parallel()
			var calls atomic.Int32
			unavailable := &statusErr{code: 503}
			b := New(Config{MaxAttempts: 3, BackoffInitial: time.Millisecond}, scripted(&calls, unavailable, unavailable, unavailable), nil)

			_, err := b.Invoke(context.Background(), tt.op)
			assert.Same(t, unavailable, err)
			assert.Equal(t, tt.calls, calls.Load())
		})
	}
}

func TestInvoke_DoesNotRetryPermanentErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
	}{
		{"not temporary", &tempErr{temporary: false}},
		{"plain error", errors.New("bad request")},
		{"precondition", engine.ErrNoBuildStarted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var calls atomic.Int32
			b := New(Config{MaxAttempts: 5, BackoffInitial: time.Millisecond}, scripted(&calls, tt.err), nil)

			_, err := b.Invoke(context.Background(), getJob)
			assert.Same(t, tt.err, err)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestInvoke_StopsRetryingOnCancel(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	temp := &tempErr{temporary: true}
	b := New(Config{MaxAttempts: 5, BackoffInitial: time.Hour}, scripted(&calls, temp, temp, temp), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := b.Invoke(ctx, getJob)
	assert.Same(t, temp, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvoke_Concurrent(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	b := New(DefaultConfig(), scripted(&calls), nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Invoke(context.Background(), getJob)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(50), calls.Load())
	assert.Equal(t, "closed", b.State())
	assert.Equal(t, uint32(50), b.Counts().TotalSuccesses)
}

func TestBackoff(t *testing.T) {
	t.Parallel()
	b := New(Config{BackoffInitial: 100 * time.Millisecond, BackoffMax: time.Second}, nil, nil)

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{10, time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, b.backoff(tt.retry), "retry %d", tt.retry)
	}
}
