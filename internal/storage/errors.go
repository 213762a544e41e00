package storage

import (
	"errors"
	"fmt"
)

// StatusError is returned when the service answers with an unexpected
// status code.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("storage: %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("storage: %s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// DecodeError is returned when a response body cannot be parsed.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("storage: %s: failed to decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StatusCode returns the status carried by err, or 0 when err is not a
// StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
