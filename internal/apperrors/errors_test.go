package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpstream struct{ status int }

func (f fakeUpstream) Error() string  { return "upstream failed" }
func (f fakeUpstream) Upstream() int { return f.status }

func TestValidation(t *testing.T) {
	t.Parallel()
	err := Validation("buildId", "buildId is required")

	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "buildId is required", err.Error())

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "buildId", appErr.Field)
}

func TestPrecondition(t *testing.T) {
	t.Parallel()
	err := Precondition("not yet")

	assert.ErrorIs(t, err, ErrPrecondition)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Equal(t, "not yet", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("token", "token is required"), http.StatusBadRequest},
		{"precondition", Precondition("later"), http.StatusConflict},
		{"wrapped precondition", fmt.Errorf("stop: %w", Precondition("later")), http.StatusConflict},
		{"unavailable", fmt.Errorf("circuit: %w", ErrUnavailable), http.StatusServiceUnavailable},
		{"upstream", fakeUpstream{status: 500}, http.StatusBadGateway},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
