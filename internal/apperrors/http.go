package apperrors

import (
	"errors"
	"net/http"
)

// upstreamError is implemented by errors returned from the remote CI server.
type upstreamError interface {
	error
	Upstream() int
}

// HTTPStatus maps an error to the appropriate HTTP status code.
func HTTPStatus(err error) int {
	var upstream upstreamError
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrPrecondition):
		return http.StatusConflict
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
