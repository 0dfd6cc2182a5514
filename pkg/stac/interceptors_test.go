package stac_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacq-io/stacq/pkg/stac"
)

func TestInterceptorChain_RunsInOrder(t *testing.T) {
	t.Parallel()

	chain := stac.NewInterceptorChain()

	var order []string

	chain.AddRequestInterceptor(func(ctx context.Context, req *stac.Request) error {
		order = append(order, "first")

		return nil
	})
	chain.AddRequestInterceptor(func(ctx context.Context, req *stac.Request) error {
		order = append(order, "second")

		return nil
	})

	req := &stac.Request{Method: http.MethodGet, Path: "/search"}
	require.NoError(t, chain.ExecuteRequestInterceptors(context.Background(), req))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestInterceptorChain_RequestFailureStopsChain(t *testing.T) {
	t.Parallel()

	chain := stac.NewInterceptorChain()
	boom := errors.New("no token")

	chain.AddRequestInterceptor(func(ctx context.Context, req *stac.Request) error {
		return boom
	})

	var reached bool

	chain.AddRequestInterceptor(func(ctx context.Context, req *stac.Request) error {
		reached = true

		return nil
	})

	err := chain.ExecuteRequestInterceptors(context.Background(), &stac.Request{})
	require.ErrorIs(t, err, boom)
	assert.False(t, reached)
}

func TestInterceptorChain_ResponseInterceptors(t *testing.T) {
	t.Parallel()

	chain := stac.NewInterceptorChain()

	var seen int

	chain.AddResponseInterceptor(func(ctx context.Context, req *stac.Request, resp *stac.Response) error {
		seen = resp.StatusCode

		return nil
	})

	resp := &stac.Response{StatusCode: http.StatusOK}
	require.NoError(t, chain.ExecuteResponseInterceptors(context.Background(), &stac.Request{}, resp))
	assert.Equal(t, http.StatusOK, seen)
}

func TestHeaderInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := stac.HeaderInterceptor(map[string]string{
		"X-Api-Key": "secret",
	})

	req := &stac.Request{Method: http.MethodGet, Path: "/search"}
	require.NoError(t, interceptor(context.Background(), req))
	assert.Equal(t, "secret", req.Headers.Get("X-Api-Key"))
}

func TestTokenInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := stac.TokenInterceptor(func(ctx context.Context) (string, error) {
		return "abc123", nil
	})

	req := &stac.Request{Method: http.MethodGet, Path: "/search"}
	require.NoError(t, interceptor(context.Background(), req))
	assert.Equal(t, "Bearer abc123", req.Headers.Get("Authorization"))
}

func TestTokenInterceptor_ProviderFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("keychain locked")

	interceptor := stac.TokenInterceptor(func(ctx context.Context) (string, error) {
		return "", boom
	})

	err := interceptor(context.Background(), &stac.Request{})
	require.ErrorIs(t, err, boom)
}

func TestQueryInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := stac.QueryInterceptor(url.Values{
		"api_key": []string{"secret"},
		"limit":   []string{"999"},
	})

	req := &stac.Request{
		Method: http.MethodGet,
		Path:   "/search",
		Query:  url.Values{"limit": []string{"10"}},
	}

	require.NoError(t, interceptor(context.Background(), req))

	// Fixed parameters never override what the request already carries.
	assert.Equal(t, "secret", req.Query.Get("api_key"))
	assert.Equal(t, "10", req.Query.Get("limit"))
}

func TestQueryInterceptor_NilQuery(t *testing.T) {
	t.Parallel()

	interceptor := stac.QueryInterceptor(url.Values{"api_key": []string{"secret"}})

	req := &stac.Request{Method: http.MethodGet, Path: "/search"}
	require.NoError(t, interceptor(context.Background(), req))
	assert.Equal(t, "secret", req.Query.Get("api_key"))
}
