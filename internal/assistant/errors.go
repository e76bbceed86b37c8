package assistant

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTransport marks failures below HTTP: network errors and bodies
	// that could not be read or decoded.
	ErrTransport = errors.New("transport failure")
	// ErrStatus marks responses with a non-2xx status code.
	ErrStatus = errors.New("unexpected HTTP status")
)

// maxErrorBodyExcerpt bounds how much of an error body is kept on StatusError.
const maxErrorBodyExcerpt = 512

// StatusError is returned for any non-2xx response. 4xx and 5xx are not
// distinguished here; see shared.IsRetryable for a policy that does.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP error! status: %d", e.Method, e.Path, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// HTTPStatusCode exposes the status to error classifiers.
func (e *StatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// TransportError is returned when no usable response was obtained.
type TransportError struct {
	Op        string
	Err       error
	Malformed bool
}

func (e *TransportError) Error() string {
	if e.Malformed {
		return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// Transient reports whether repeating the request could help. Malformed
// bodies and cancelled contexts are not transient.
func (e *TransportError) Transient() bool {
	if e.Malformed {
		return false
	}
	return !errors.Is(e.Err, context.Canceled) && !errors.Is(e.Err, context.DeadlineExceeded)
}

func excerpt(body []byte) string {
	if len(body) > maxErrorBodyExcerpt {
		return string(body[:maxErrorBodyExcerpt])
	}
	return string(body)
}
