// Package http implements the retrying HTTP transport used by the STAC
// client. It is built on retryablehttp: connection errors and timeouts
// are always retried with exponential backoff, response statuses only
// when explicitly configured.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/stacq-io/stacq/internal/constants"
	"github.com/stacq-io/stacq/internal/metrics"
	"github.com/stacq-io/stacq/pkg/stac"
)

// Client is a retrying HTTP transport for one catalog endpoint. It
// implements stac.Transport.
type Client struct {
	baseURL       string
	httpClient    *retryablehttp.Client
	userAgent     string
	headers       map[string]string
	interceptors  *stac.InterceptorChain
	retryStatuses map[int]bool
	logger        stac.Logger
	debug         bool
	sink          stac.DiagnosticSink
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger stac.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithHeaders sets fixed headers sent on every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = headers
	}
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithRetryConfig tunes the retry budget and backoff window.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithRetryStatusCodes sets the response statuses treated as retryable.
// Statuses outside the set are returned to the caller unretried.
func WithRetryStatusCodes(codes ...int) Option {
	return func(c *Client) {
		c.retryStatuses = make(map[int]bool, len(codes))
		for _, code := range codes {
			c.retryStatuses[code] = true
		}
	}
}

// WithInterceptors sets the interceptor chain.
func WithInterceptors(chain *stac.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// WithDiagnostics sets the sink receiving non-fatal signals.
func WithDiagnostics(sink stac.DiagnosticSink) Option {
	return func(c *Client) {
		c.sink = sink
	}
}

// NewClient creates a transport for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.Logger = nil

	client := &Client{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		httpClient:    retryClient,
		userAgent:     constants.UserAgent,
		interceptors:  stac.NewInterceptorChain(),
		retryStatuses: map[int]bool{},
		sink:          stac.NopSink{},
	}

	for _, opt := range opts {
		opt(client)
	}

	retryClient.CheckRetry = client.checkRetry
	retryClient.ErrorHandler = client.errorHandler
	retryClient.RequestLogHook = client.requestLogHook

	return client
}

// checkRetry retries connection-level failures and the configured
// response statuses, nothing else. In particular a 5xx is not retried
// unless the caller opted in.
func (c *Client) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil || resp == nil {
		// Defer to the default policy so non-recoverable failures
		// (bad scheme, TLS verification) are not retried.
		retry, _ := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		if retry {
			metrics.ObserveRetry("network")
		}

		return retry, nil
	}

	if c.retryStatuses[resp.StatusCode] {
		metrics.ObserveRetry("status")

		return true, nil
	}

	return false, nil
}

func (c *Client) errorHandler(resp *http.Response, err error, numTries int) (*http.Response, error) {
	metrics.ObserveRetryExhausted()

	if err != nil {
		return resp, fmt.Errorf("%w: giving up after %d attempts: %w", stac.ErrRetryExhausted, numTries, err)
	}

	return resp, fmt.Errorf("%w: giving up after %d attempts", stac.ErrRetryExhausted, numTries)
}

func (c *Client) requestLogHook(_ retryablehttp.Logger, req *http.Request, attempt int) {
	if attempt > 0 && c.logger != nil {
		c.logger.Warn("retrying request", map[string]any{
			"method":  req.Method,
			"url":     req.URL.String(),
			"attempt": attempt + 1,
		})
	}
}

// Do executes a request and returns the decoded response. Responses with
// status >= 400 are returned together with a *stac.APIError.
func (c *Client) Do(ctx context.Context, req *stac.Request) (*stac.Response, error) {
	c.runRequestInterceptors(ctx, req)

	fullURL := c.resolveURL(req)

	var bodyBytes []byte

	if req.Body != nil {
		var err error

		bodyBytes, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, bodyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(httpReq, req, bodyBytes != nil)

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]any{
			"method": req.Method,
			"url":    fullURL,
		})
	}

	start := time.Now()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if httpResp != nil {
			httpResp.Body.Close()
		}

		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	metrics.ObserveRequest(req.Method, httpResp.StatusCode, time.Since(start))

	resp := &stac.Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]any{
			"method":      req.Method,
			"url":         fullURL,
			"status_code": resp.StatusCode,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}

	err = c.interceptors.ExecuteResponseInterceptors(ctx, req, resp)
	if err != nil {
		return resp, err
	}

	if resp.StatusCode >= constants.HTTPStatusBadRequest {
		return resp, apiError(resp)
	}

	return resp, nil
}

// runRequestInterceptors executes the chain under the target guard:
// interceptors may add headers or query parameters, but a change to the
// request target is reported and discarded.
func (c *Client) runRequestInterceptors(ctx context.Context, req *stac.Request) {
	method, path := req.Method, req.Path

	err := c.interceptors.ExecuteRequestInterceptors(ctx, req)
	if err != nil && c.logger != nil {
		c.logger.Warn("request interceptor failed", map[string]any{"error": err.Error()})
	}

	if req.Method != method || req.Path != path {
		c.sink.Emit(stac.Signal{
			Kind:    stac.SignalModifiedTarget,
			Message: fmt.Sprintf("request interceptor changed the target to %s %s, keeping %s %s", req.Method, req.Path, method, path),
		})

		req.Method, req.Path = method, path
	}
}

// resolveURL keeps absolute targets as-is so continuation links can
// point anywhere the server sends us; relative paths resolve against the
// base URL.
func (c *Client) resolveURL(req *stac.Request) string {
	fullURL := req.Path
	if !strings.HasPrefix(fullURL, "http://") && !strings.HasPrefix(fullURL, "https://") {
		fullURL = c.baseURL + "/" + strings.TrimPrefix(fullURL, "/")
	}

	if len(req.Query) > 0 {
		separator := "?"
		if strings.Contains(fullURL, "?") {
			separator = "&"
		}

		fullURL += separator + req.Query.Encode()
	}

	return fullURL
}

func (c *Client) setHeaders(httpReq *retryablehttp.Request, req *stac.Request, hasBody bool) {
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	if hasBody {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}

	for key, values := range req.Headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*stac.Response, error) {
	return c.Do(ctx, &stac.Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*stac.Response, error) {
	return c.Do(ctx, &stac.Request{Method: http.MethodPost, Path: path, Body: body})
}

// apiError maps an error response onto stac.APIError, pulling a human
// message out of the common STAC error body shapes.
func apiError(resp *stac.Response) error {
	var payload struct {
		Description string `json:"description"`
		Detail      string `json:"detail"`
		Message     string `json:"message"`
	}

	message := ""

	if err := json.Unmarshal(bytes.TrimSpace(resp.Body), &payload); err == nil {
		switch {
		case payload.Description != "":
			message = payload.Description
		case payload.Detail != "":
			message = payload.Detail
		case payload.Message != "":
			message = payload.Message
		}
	}

	return &stac.APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Body:       resp.Body,
	}
}

var _ stac.Transport = (*Client)(nil)
