// Package llm holds provider-neutral plumbing for text-completion backends.
package llm

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when a backend answers without any text.
var ErrEmptyResponse = errors.New("empty completion")

// ServiceError is a failed call to a completion backend: network, auth,
// rate-limit or model errors all surface as this type.
type ServiceError struct {
	Provider   string
	Op         string
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	msg := e.Provider + " " + e.Op
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ServiceError) Unwrap() error { return e.Err }

// IsServiceError reports whether err wraps a *ServiceError.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}
