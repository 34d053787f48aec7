package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrTerminal marks a record that already reached completed or error.
	ErrTerminal = errors.New("record already terminal")
	// ErrMissingReference means a record points at another record that is gone.
	// Never retried.
	ErrMissingReference = errors.New("required data not found")
)
