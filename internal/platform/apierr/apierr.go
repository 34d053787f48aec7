package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an error that already knows how it should be rendered over HTTP.
type Error struct {
	Status  int
	Code    string
	Err     error
	Details any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetails returns a copy carrying extra detail for the envelope.
func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Details = details
	return &cp
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Newf(status int, code, format string, args ...any) *Error {
	return &Error{Status: status, Code: code, Err: fmt.Errorf(format, args...)}
}

func BadRequest(code, msg string) *Error {
	return New(http.StatusBadRequest, code, errors.New(msg))
}

func Validation(code, msg string) *Error {
	if code == "" {
		code = "VALIDATION_ERROR"
	}
	return New(http.StatusBadRequest, code, errors.New(msg))
}

func NotFound(code, msg string) *Error {
	if code == "" {
		code = "NOT_FOUND"
	}
	return New(http.StatusNotFound, code, errors.New(msg))
}

func Unauthorized(code, msg string) *Error {
	if code == "" {
		code = "UNAUTHORIZED"
	}
	return New(http.StatusUnauthorized, code, errors.New(msg))
}

func Forbidden(msg string) *Error {
	return New(http.StatusForbidden, "FORBIDDEN", errors.New(msg))
}

func Conflict(msg string) *Error {
	return New(http.StatusConflict, "CONFLICT", errors.New(msg))
}

func RateLimited(msg string) *Error {
	return New(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", errors.New(msg))
}

func ServiceUnavailable(msg string) *Error {
	return New(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", errors.New(msg))
}

func ExternalService(err error) *Error {
	return New(http.StatusBadGateway, "EXTERNAL_SERVICE_ERROR", err)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "INTERNAL_ERROR", err)
}

// From returns the *Error in err's chain, or wraps err as an internal error.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae
	}
	return Internal(err)
}
