package stac

import (
	"errors"
	"fmt"
)

// Static errors so callers can branch with errors.Is.
var (
	ErrInvalidFilterSyntax   = errors.New("invalid filter syntax")
	ErrInvalidSortSyntax     = errors.New("invalid sort syntax")
	ErrInvalidDatetime       = errors.New("invalid datetime")
	ErrInvalidLimit          = errors.New("invalid limit, must be between 1 and 10000")
	ErrInvalidMaxItems       = errors.New("max items must not be negative")
	ErrInvalidMaxCollections = errors.New("max collections must not be negative")
	ErrConflictingFilter     = errors.New("a search may carry either a filter expression or a raw filter, not both")
	ErrRetryExhausted        = errors.New("retry attempts exhausted")
	ErrNoMoreItems           = errors.New("no more items")
	ErrNoMorePages           = errors.New("no more pages")
	ErrConfigRequired        = errors.New("config is required")
	ErrEndpointRequired      = errors.New("catalog endpoint is required")
	ErrCollectionNotFound    = errors.New("collection not found")
	ErrUnsupportedMethod     = errors.New("unsupported search method")
	ErrCacheKeyNotFound      = errors.New("key not found")
	ErrCacheEntryExpired     = errors.New("entry expired")
	ErrCacheDisabled         = errors.New("cache disabled")
	ErrKeyNotFoundInAnyCache = errors.New("key not found in any cache")
	ErrNATSConfigRequired    = errors.New("NATS configuration required for NATS cache")
	ErrUnsupportedCacheType  = errors.New("unsupported cache type")
)

// APIError represents a non-2xx response from the server. Responses with
// these statuses are never retried; the body is carried verbatim for the
// caller to inspect.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	}

	return fmt.Sprintf("server returned %d", e.StatusCode)
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	apiErr := &APIError{}

	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

// IsRetryExhausted reports whether err is a transient failure that was
// retried until the attempt budget ran out.
func IsRetryExhausted(err error) bool {
	return errors.Is(err, ErrRetryExhausted)
}
