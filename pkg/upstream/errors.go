package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrInvalidPage is returned for page indices below 1.
var ErrInvalidPage = errors.New("page index must be >= 1")

// ErrorClass classifies why a page fetch failed.
type ErrorClass string

const (
	// ErrorClassNetwork represents transport failures (DNS, refused connections, resets).
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassTimeout represents a fetch that exceeded its per-request timeout.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassStatus represents a non-2xx response from the provider.
	ErrorClassStatus ErrorClass = "status"

	// ErrorClassDecode represents a body that could not be parsed.
	ErrorClassDecode ErrorClass = "decode"
)

// FetchError is the failure of a single page fetch.
type FetchError struct {
	Page       int
	Class      ErrorClass
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s error on page %d (status %d): %v",
			e.Class, e.Page, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream %s error on page %d: %v", e.Class, e.Page, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// classifyTransportError separates timeouts from other transport failures.
func classifyTransportError(err error) ErrorClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorClassTimeout
	}
	return ErrorClassNetwork
}
