package stac

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Request represents one outbound call before transport-level encoding.
// Path may be a path relative to the client's base URL or an absolute
// URL (continuation links are absolute). Body, when non-nil, is JSON
// encoded and forces a request body; Query is used for GET encoding.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Headers http.Header
}

// Response represents an HTTP response after transport-level decoding.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Transport executes one logical request, retrying transient failures
// internally. Implemented by internal/http; faked in tests.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// RequestInterceptor runs before a request is sent. Interceptors must
// return an equivalent request: adding headers or signature fields is
// fine, changing the target is a usage error that the transport reports
// and ignores.
type RequestInterceptor func(ctx context.Context, req *Request) error

// ResponseInterceptor runs after a response is received, before the
// response is handed back to the caller.
type ResponseInterceptor func(ctx context.Context, req *Request, resp *Response) error

// InterceptorChain manages ordered request and response interceptors.
type InterceptorChain struct {
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewInterceptorChain creates an empty chain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{}
}

// AddRequestInterceptor appends a request interceptor.
func (c *InterceptorChain) AddRequestInterceptor(interceptor RequestInterceptor) {
	c.requestInterceptors = append(c.requestInterceptors, interceptor)
}

// AddResponseInterceptor appends a response interceptor.
func (c *InterceptorChain) AddResponseInterceptor(interceptor ResponseInterceptor) {
	c.responseInterceptors = append(c.responseInterceptors, interceptor)
}

// ExecuteRequestInterceptors runs all request interceptors in order.
func (c *InterceptorChain) ExecuteRequestInterceptors(ctx context.Context, req *Request) error {
	for _, interceptor := range c.requestInterceptors {
		err := interceptor(ctx, req)
		if err != nil {
			return fmt.Errorf("request interceptor failed: %w", err)
		}
	}

	return nil
}

// ExecuteResponseInterceptors runs all response interceptors in order.
func (c *InterceptorChain) ExecuteResponseInterceptors(ctx context.Context, req *Request, resp *Response) error {
	for _, interceptor := range c.responseInterceptors {
		err := interceptor(ctx, req, resp)
		if err != nil {
			return fmt.Errorf("response interceptor failed: %w", err)
		}
	}

	return nil
}

// Common interceptors.

// HeaderInterceptor sets fixed headers on every request.
func HeaderInterceptor(headers map[string]string) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Headers == nil {
			req.Headers = make(http.Header)
		}

		for key, value := range headers {
			req.Headers.Set(key, value)
		}

		return nil
	}
}

// TokenInterceptor adds a bearer token from a provider. The transport is
// agnostic to the authentication scheme; this is one common shape.
func TokenInterceptor(tokenProvider func(context.Context) (string, error)) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		token, err := tokenProvider(ctx)
		if err != nil {
			return fmt.Errorf("failed to get token: %w", err)
		}

		if req.Headers == nil {
			req.Headers = make(http.Header)
		}

		req.Headers.Set("Authorization", "Bearer "+token)

		return nil
	}
}

// QueryInterceptor merges fixed query parameters into every request,
// e.g. an API key a provider requires on all calls.
func QueryInterceptor(parameters url.Values) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if len(parameters) == 0 {
			return nil
		}

		if req.Query == nil {
			req.Query = url.Values{}
		}

		for key, values := range parameters {
			if req.Query.Has(key) {
				continue
			}

			for _, value := range values {
				req.Query.Add(key, value)
			}
		}

		return nil
	}
}

// LoggingInterceptor logs requests at debug level.
func LoggingInterceptor(logger Logger) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		logger.Debug("API request", map[string]any{
			"method": req.Method,
			"path":   req.Path,
		})

		return nil
	}
}

// LoggingResponseInterceptor logs responses at debug level.
func LoggingResponseInterceptor(logger Logger) ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		logger.Debug("API response", map[string]any{
			"method":      req.Method,
			"path":        req.Path,
			"status_code": resp.StatusCode,
		})

		return nil
	}
}
