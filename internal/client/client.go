// Package client implements the stac.Client interface: landing page and
// capability discovery, collection metadata with caching, and search
// construction.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/stacq-io/stacq/internal/constants"
	"github.com/stacq-io/stacq/internal/http"
	"github.com/stacq-io/stacq/pkg/stac"
)

// Client implements the stac.Client interface.
type Client struct {
	httpClient *http.Client
	endpoint   string
	logger     stac.Logger
	sink       stac.DiagnosticSink
	cache      *stac.CacheManager

	conformsOverride []stac.ConformanceClass

	mu          sync.Mutex
	catalog     *stac.Catalog
	conformance *stac.ConformanceSet
	searchHref  string
}

// New creates a client for the configured catalog endpoint. The landing
// page is not fetched until the first operation that needs it.
func New(config *stac.Config) (*Client, error) {
	if config == nil {
		return nil, stac.ErrConfigRequired
	}

	if config.Endpoint == "" {
		return nil, stac.ErrEndpointRequired
	}

	sink := config.Diagnostics
	if sink == nil {
		sink = stac.NopSink{}
	}

	httpClient := http.NewClient(config.Endpoint, httpClientOptions(config, sink)...)

	cacheManager, err := buildCacheManager(config)
	if err != nil {
		return nil, err
	}

	return &Client{
		httpClient:       httpClient,
		endpoint:         strings.TrimSuffix(config.Endpoint, "/"),
		logger:           config.Logger,
		sink:             sink,
		cache:            cacheManager,
		conformsOverride: config.ConformsTo,
	}, nil
}

// httpClientOptions builds transport options from config.
func httpClientOptions(config *stac.Config, sink stac.DiagnosticSink) []http.Option {
	opts := []http.Option{http.WithDiagnostics(sink)}

	if config.Logger != nil {
		opts = append(opts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		opts = append(opts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		opts = append(opts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		opts = append(opts, http.WithTimeout(config.HTTPTimeout))
	}

	if len(config.Headers) > 0 {
		opts = append(opts, http.WithHeaders(config.Headers))
	}

	if len(config.RetryStatusCodes) > 0 {
		opts = append(opts, http.WithRetryStatusCodes(config.RetryStatusCodes...))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		opts = append(opts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	chain := stac.NewInterceptorChain()

	if config.AccessToken != "" {
		token := config.AccessToken
		chain.AddRequestInterceptor(stac.TokenInterceptor(func(context.Context) (string, error) {
			return token, nil
		}))
	}

	if len(config.Parameters) > 0 {
		params := url.Values{}
		for key, value := range config.Parameters {
			params.Set(key, value)
		}

		chain.AddRequestInterceptor(stac.QueryInterceptor(params))
	}

	opts = append(opts, http.WithInterceptors(chain))

	return opts
}

func buildCacheManager(config *stac.Config) (*stac.CacheManager, error) {
	if config.Cache == nil {
		return stac.NewCacheManager(nil, nil), nil
	}

	backend, err := stac.NewCacheFromConfig(config.Cache)
	if err != nil {
		return nil, fmt.Errorf("building metadata cache: %w", err)
	}

	return stac.NewCacheManager(backend, config.Cache.Options), nil
}

// Endpoint implements stac.Client.Endpoint.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Catalog implements stac.Client.Catalog. The landing page is memoized
// for the client's lifetime and cached across clients when a cache
// backend is configured.
func (c *Client) Catalog(ctx context.Context) (*stac.Catalog, error) {
	c.mu.Lock()
	catalog := c.catalog
	c.mu.Unlock()

	if catalog != nil {
		return catalog, nil
	}

	body, err := c.getCached(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("fetching landing page: %w", err)
	}

	var fetched stac.Catalog

	err = json.Unmarshal(body, &fetched)
	if err != nil {
		return nil, fmt.Errorf("parsing landing page: %w", err)
	}

	c.mu.Lock()
	c.catalog = &fetched
	c.mu.Unlock()

	return &fetched, nil
}

// Conformance implements stac.Client.Conformance. The registry comes
// from the landing page declaration, or from the /conformance endpoint
// when the landing page has none. A ConformsTo override in the config
// skips discovery entirely.
func (c *Client) Conformance(ctx context.Context) (*stac.ConformanceSet, error) {
	c.mu.Lock()
	conformance := c.conformance
	c.mu.Unlock()

	if conformance != nil {
		return conformance, nil
	}

	if len(c.conformsOverride) > 0 {
		uris := make([]string, 0, len(c.conformsOverride))
		for _, class := range c.conformsOverride {
			uris = append(uris, class.ValidURI())
		}

		set := stac.NewConformanceSet(uris, c.sink)

		c.mu.Lock()
		c.conformance = set
		c.mu.Unlock()

		return set, nil
	}

	catalog, err := c.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	uris := catalog.ConformsTo

	if len(uris) == 0 {
		uris = c.conformanceEndpoint(ctx)
	}

	set := stac.NewConformanceSet(uris, c.sink)

	c.mu.Lock()
	c.conformance = set
	c.mu.Unlock()

	return set, nil
}

// conformanceEndpoint reads /conformance. Errors are swallowed: a
// missing declaration is handled downstream by the capability checks.
func (c *Client) conformanceEndpoint(ctx context.Context) []string {
	body, err := c.getCached(ctx, "/conformance")
	if err != nil {
		return nil
	}

	var payload struct {
		ConformsTo []string `json:"conformsTo"`
	}

	err = json.Unmarshal(body, &payload)
	if err != nil {
		return nil
	}

	return payload.ConformsTo
}

// Search implements stac.Client.Search.
func (c *Client) Search(ctx context.Context, spec *stac.SearchSpec, opts ...stac.SearchOption) (*stac.Search, error) {
	conformance, err := c.Conformance(ctx)
	if err != nil {
		return nil, err
	}

	searchURL, err := c.searchURL(ctx)
	if err != nil {
		return nil, err
	}

	defaults := []stac.SearchOption{
		stac.WithConformance(conformance),
		stac.WithDiagnostics(c.sink),
	}

	if c.logger != nil {
		defaults = append(defaults, stac.WithLogger(c.logger))
	}

	return stac.NewSearch(c.httpClient, searchURL, spec, append(defaults, opts...)...)
}

// searchURL discovers the search endpoint from the landing page's
// rel=search link. Catalogs without one get the conventional
// {endpoint}/search, reported as a diagnostic since the attempt may
// well fail.
func (c *Client) searchURL(ctx context.Context) (string, error) {
	c.mu.Lock()
	href := c.searchHref
	c.mu.Unlock()

	if href != "" {
		return href, nil
	}

	catalog, err := c.Catalog(ctx)
	if err != nil {
		return "", err
	}

	link := catalog.Links.Find("search")
	if link != nil && link.Href != "" {
		href = c.absoluteHref(link.Href)
	} else {
		c.sink.Emit(stac.Signal{
			Kind:    stac.SignalMissingLink,
			Message: "no search link on landing page, trying " + c.endpoint + "/search",
		})

		href = c.endpoint + "/search"
	}

	c.mu.Lock()
	c.searchHref = href
	c.mu.Unlock()

	return href, nil
}

// Collections implements stac.Client.Collections, following pagination
// links until the listing is complete.
func (c *Client) Collections(ctx context.Context) ([]*stac.Collection, error) {
	var collections []*stac.Collection

	href := "/collections"

	for href != "" {
		body, err := c.getCached(ctx, href)
		if err != nil {
			return nil, fmt.Errorf("listing collections: %w", err)
		}

		var page stac.CollectionsPage

		err = json.Unmarshal(body, &page)
		if err != nil {
			return nil, fmt.Errorf("parsing collections response: %w", err)
		}

		collections = append(collections, page.Collections...)

		href = ""

		if next := page.Links.Find("next"); next != nil && next.Href != "" {
			href = c.absoluteHref(next.Href)
		}
	}

	return collections, nil
}

// SearchCollections implements stac.Client.SearchCollections.
func (c *Client) SearchCollections(ctx context.Context, spec *stac.CollectionSearchSpec, opts ...stac.CollectionSearchOption) (*stac.CollectionSearch, error) {
	conformance, err := c.Conformance(ctx)
	if err != nil {
		return nil, err
	}

	defaults := []stac.CollectionSearchOption{
		stac.WithCollectionConformance(conformance),
		stac.WithCollectionDiagnostics(c.sink),
	}

	if c.logger != nil {
		defaults = append(defaults, stac.WithCollectionLogger(c.logger))
	}

	return stac.NewCollectionSearch(c.httpClient, c.endpoint+"/collections", spec, append(defaults, opts...)...)
}

// GetCollection implements stac.Client.GetCollection. Catalogs that do
// not serve /collections/{id} directly are handled by scanning the
// collection listing instead.
func (c *Client) GetCollection(ctx context.Context, id string) (*stac.Collection, error) {
	body, err := c.getCached(ctx, "/collections/"+url.PathEscape(id))
	if err != nil {
		apiErr := &stac.APIError{}
		if errors.As(err, &apiErr) {
			return c.findCollection(ctx, id)
		}

		return nil, fmt.Errorf("fetching collection %q: %w", id, err)
	}

	var collection stac.Collection

	err = json.Unmarshal(body, &collection)
	if err != nil {
		return nil, fmt.Errorf("parsing collection response: %w", err)
	}

	return &collection, nil
}

// findCollection resolves an ID through the collection listing.
func (c *Client) findCollection(ctx context.Context, id string) (*stac.Collection, error) {
	collections, err := c.Collections(ctx)
	if err != nil {
		return nil, err
	}

	for _, collection := range collections {
		if collection.ID == id {
			return collection, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", stac.ErrCollectionNotFound, id)
}

// getCached performs a GET through the metadata cache.
func (c *Client) getCached(ctx context.Context, path string) ([]byte, error) {
	key := c.cache.GetCacheKey("GET", c.endpoint+path, nil)

	cached, err := c.cache.Get(ctx, key)
	if err == nil {
		return cached, nil
	}

	resp, err := c.httpClient.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	etag := resp.Headers.Get("ETag")
	_ = c.cache.SetWithETag(ctx, key, resp.Body, etag, 0)

	return resp.Body, nil
}

// absoluteHref resolves a possibly relative link href against the
// endpoint.
func (c *Client) absoluteHref(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	return c.endpoint + "/" + strings.TrimPrefix(href, "/")
}

var _ stac.Client = (*Client)(nil)
