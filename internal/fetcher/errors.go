package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrBadStatus is wrapped by FetchError when the server answered with a
// status outside the 2xx range.
var ErrBadStatus = errors.New("unexpected HTTP status")

// ErrInvalidProxyAddress is returned when the proxy address is not host:port.
var ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

// FetchError describes why a page could not be fetched. It is recoverable:
// the crawler skips the URL and moves on.
type FetchError struct {
	// URL is the address that failed.
	URL string

	// StatusCode is the HTTP status when a response was received, 0 otherwise.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was caused by the request timeout.
func (e *FetchError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}
