package stac

import (
	"context"
	"time"
)

// Client provides access to a STAC API endpoint: capability discovery,
// collection metadata, and item search. A concrete implementation is
// provided by the stacclient package, which wires configuration,
// transport, caching, and link discovery.
type Client interface {
	// Endpoint returns the normalized catalog endpoint URL.
	Endpoint() string

	// Catalog returns the landing page document.
	Catalog(ctx context.Context) (*Catalog, error)

	// Conformance returns the capability registry built from the
	// catalog's conformance declaration.
	Conformance(ctx context.Context) (*ConformanceSet, error)

	// Search prepares an item search. No request is sent until the
	// returned search is iterated.
	Search(ctx context.Context, spec *SearchSpec, opts ...SearchOption) (*Search, error)

	// Collections lists all collections in the catalog, following
	// pagination links.
	Collections(ctx context.Context) ([]*Collection, error)

	// SearchCollections prepares a collection search. Servers without
	// the collection-search capability are filtered client-side. No
	// request is sent until the returned search is iterated.
	SearchCollections(ctx context.Context, spec *CollectionSearchSpec, opts ...CollectionSearchOption) (*CollectionSearch, error)

	// GetCollection fetches a single collection by ID. Returns an error
	// wrapping ErrCollectionNotFound when the catalog has no such
	// collection.
	GetCollection(ctx context.Context, id string) (*Collection, error)
}

// Config represents client configuration for building a stac.Client.
//
// # Endpoint normalization
//
// stacclient.New trims a trailing slash and adds "https://" if no scheme
// is present.
//
// # Timeouts and retries
//
// Per-request timeouts should generally be controlled via the context
// passed to client methods. Transient-failure retry behavior is tuned
// via RetryMax/RetryWaitMin/RetryWaitMax and RetryStatusCodes; responses
// whose status is not listed are returned to the caller unretried.
type Config struct {
	// Endpoint: base URL for the catalog (e.g. "https://earth-search.aws.element84.com/v1").
	Endpoint string

	// Headers are sent on every request, e.g. an API key header.
	Headers map[string]string

	// Parameters are query parameters merged into every request.
	Parameters map[string]string

	// AccessToken, if set, is sent as a Bearer token on every request.
	AccessToken string

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// HTTPTimeout is the per-attempt HTTP timeout. Zero uses the default.
	HTTPTimeout time.Duration

	// RetryMax is the maximum number of retries for transient failures.
	// If 0, a sensible default is used.
	RetryMax int

	// RetryWaitMin is the minimum backoff between retries.
	RetryWaitMin time.Duration

	// RetryWaitMax is the maximum backoff between retries.
	RetryWaitMax time.Duration

	// RetryStatusCodes lists the response statuses treated as retryable,
	// e.g. 502 and 503. Connection errors and timeouts are always
	// retried. By default no status code is retried.
	RetryStatusCodes []int

	// ConformsTo overrides the capability registry instead of reading the
	// catalog's conformance declaration. Useful for servers with missing
	// or wrong declarations.
	ConformsTo []ConformanceClass

	// Cache configures the metadata cache. Nil disables caching.
	Cache *CacheConfig

	// Diagnostics receives non-fatal signals: capability gaps, missing
	// links, continuation cycles. Nil discards them.
	Diagnostics DiagnosticSink

	// Debug enables verbose request/response logging when a Logger is set.
	Debug bool

	// Logger: optional structured logger used by the HTTP layer.
	Logger Logger
}
