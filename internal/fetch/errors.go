package fetch

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors carried by *FetchError.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrStatus       = errors.New("unexpected status")
	ErrTransport    = errors.New("transport failure")
)

// FetchError describes a failed fetch. Err wraps one of the sentinels.
type FetchError struct {
	Locator    string
	StatusCode int
	// Message is the server's error message, when the body carried one.
	Message string
	// After is the server-requested wait from Retry-After.
	After time.Duration
	Err   error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("fetch %s: %v", e.Locator, e.Err)
	case e.Message != "":
		return fmt.Sprintf("fetch %s: %v (%d): %s", e.Locator, e.Err, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("fetch %s: %v (%d)", e.Locator, e.Err, e.StatusCode)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// sentinelFor maps a non-2xx status code to its sentinel.
func sentinelFor(status int) error {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrStatus
	}
}

// StatusCode returns the HTTP status carried by a fetch error, or 0.
func StatusCode(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}
