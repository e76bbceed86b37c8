package shared

import (
	"context"
	"errors"
	"net"
	"net/http"
)

type statusCoder interface {
	HTTPStatusCode() int
}

type transient interface {
	Transient() bool
}

// IsRetryableStatus reports whether an HTTP status is worth another attempt:
// 408, 429 and every 5xx.
func IsRetryableStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}

// IsRetryable classifies errors returned by the assistant client.
// Context cancellation is never retryable. Errors carrying an HTTP status
// are retryable per IsRetryableStatus. Errors that declare themselves
// transient and network errors are retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		return IsRetryableStatus(sc.HTTPStatusCode())
	}

	var tr transient
	if errors.As(err, &tr) {
		return tr.Transient()
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
