package client

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    any
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("mumble api: status=%d %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("mumble api: status=%d code=%s %s", e.StatusCode, e.Code, e.Message)
}

func (e *APIError) HTTPStatusCode() int { return e.StatusCode }

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsRateLimited reports whether err is a 429 from the API.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}
