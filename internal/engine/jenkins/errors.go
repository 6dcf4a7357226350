package jenkins

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the Jenkins API.
// The message never includes the response body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// Temporary reports whether retrying the call may succeed
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Upstream returns the status code reported by Jenkins
func (e *APIError) Upstream() int {
	return e.StatusCode
}

// newAPIError formats Jenkins API errors into user-friendly messages
// without exposing internal implementation details
func newAPIError(statusCode int) *APIError {
	var msg string
	switch statusCode {
	case http.StatusUnauthorized:
		msg = "authentication failed: invalid credentials"
	case http.StatusForbidden:
		msg = "access denied: insufficient permissions"
	case http.StatusNotFound:
		msg = "resource not found"
	case http.StatusBadRequest:
		msg = "invalid request"
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		msg = "jenkins server error: please try again later"
	default:
		msg = "jenkins api request failed"
	}
	return &APIError{StatusCode: statusCode, Message: msg}
}

// IsNotFound reports whether err is a Jenkins 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
