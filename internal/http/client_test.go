package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalhttp "github.com/stacq-io/stacq/internal/http"
	"github.com/stacq-io/stacq/pkg/stac"
)

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	messages []string
}

func (l *recordingLogger) Debug(msg string, _ map[string]any) { l.messages = append(l.messages, msg) }
func (l *recordingLogger) Info(msg string, _ map[string]any)  { l.messages = append(l.messages, msg) }
func (l *recordingLogger) Warn(msg string, _ map[string]any)  { l.messages = append(l.messages, msg) }
func (l *recordingLogger) Error(msg string, _ map[string]any) { l.messages = append(l.messages, msg) }

func fastRetry() internalhttp.Option {
	return internalhttp.WithRetryConfig(3, time.Millisecond, 5*time.Millisecond)
}

func TestClient_Get(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/collections", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"collections":[]}`))
	}))
	defer server.Close()

	client := internalhttp.NewClient(server.URL)

	resp, err := client.Get(context.Background(), "/collections", url.Values{"limit": []string{"10"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"collections":[]}`, string(resp.Body))
}

func TestClient_PostEncodesBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []any{"c1"}, body["collections"])

		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))
	defer server.Close()

	client := internalhttp.NewClient(server.URL)

	resp, err := client.Post(context.Background(), "/search", map[string]any{"collections": []string{"c1"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClient_FixedAndPerRequestHeaders(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fixed", r.Header.Get("X-Fixed"))
		assert.Equal(t, "per-request", r.Header.Get("X-Extra"))
		assert.Equal(t, "custom-agent/2.0", r.Header.Get("User-Agent"))

		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := internalhttp.NewClient(server.URL,
		internalhttp.WithHeaders(map[string]string{"X-Fixed": "fixed"}),
		internalhttp.WithUserAgent("custom-agent/2.0"),
	)

	headers := http.Header{}
	headers.Set("X-Extra", "per-request")

	_, err := client.Do(context.Background(), &stac.Request{
		Method:  http.MethodGet,
		Path:    "/",
		Headers: headers,
	})
	require.NoError(t, err)
}

func TestClient_RetriesConfiguredStatus(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := internalhttp.NewClient(server.URL,
		fastRetry(),
		internalhttp.WithRetryStatusCodes(http.StatusServiceUnavailable),
	)

	resp, err := client.Get(context.Background(), "/", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_RetriesDroppedConnections(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			hijacker, ok := w.(http.Hijacker)
			require.True(t, ok)

			conn, _, err := hijacker.Hijack()
			require.NoError(t, err)
			_ = conn.Close()

			return
		}

		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	// No retryable statuses configured: connection-level failures are
	// retried regardless.
	client := internalhttp.NewClient(server.URL, fastRetry())

	resp, err := client.Get(context.Background(), "/", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_DoesNotRetryUnconfiguredStatus(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := internalhttp.NewClient(server.URL, fastRetry())

	resp, err := client.Get(context.Background(), "/", nil)
	require.Error(t, err)

	apiErr := &stac.APIError{}
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_ClientErrorsNeverRetried(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"description":"collection does not exist"}`))
	}))
	defer server.Close()

	client := internalhttp.NewClient(server.URL, fastRetry())

	_, err := client.Get(context.Background(), "/collections/nope", nil)
	require.Error(t, err)
	assert.True(t, stac.IsNotFound(err))
	assert.Contains(t, err.Error(), "collection does not exist")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_RetryExhausted(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := internalhttp.NewClient(server.URL,
		internalhttp.WithRetryConfig(2, time.Millisecond, 5*time.Millisecond),
		internalhttp.WithRetryStatusCodes(http.StatusServiceUnavailable),
	)

	_, err := client.Get(context.Background(), "/", nil)
	require.Error(t, err)
	assert.True(t, stac.IsRetryExhausted(err))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_AbsoluteURLBypassesBase(t *testing.T) {
	t.Parallel()

	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/page/2", r.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer other.Close()

	base := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("base server should not be hit")
	}))
	defer base.Close()

	client := internalhttp.NewClient(base.URL)

	resp, err := client.Get(context.Background(), other.URL+"/page/2", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClient_InterceptorAddsHeaders(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	chain := stac.NewInterceptorChain()
	chain.AddRequestInterceptor(stac.TokenInterceptor(func(context.Context) (string, error) {
		return "token-123", nil
	}))

	client := internalhttp.NewClient(server.URL, internalhttp.WithInterceptors(chain))

	_, err := client.Get(context.Background(), "/", nil)
	require.NoError(t, err)
}

func TestClient_InterceptorCannotChangeTarget(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/intended", r.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	chain := stac.NewInterceptorChain()
	chain.AddRequestInterceptor(func(ctx context.Context, req *stac.Request) error {
		req.Path = "/hijacked"

		return nil
	})

	sink := &stac.CollectorSink{}

	client := internalhttp.NewClient(server.URL,
		internalhttp.WithInterceptors(chain),
		internalhttp.WithDiagnostics(sink),
	)

	_, err := client.Get(context.Background(), "/intended", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sink.Count(stac.SignalModifiedTarget))
}

func TestClient_DebugLogsRequestAndResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	logger := &recordingLogger{}

	client := internalhttp.NewClient(server.URL,
		internalhttp.WithLogger(logger),
		internalhttp.WithDebug(true),
	)

	_, err := client.Get(context.Background(), "/", nil)
	require.NoError(t, err)

	require.Len(t, logger.messages, 2)
	assert.Equal(t, "HTTP Request", logger.messages[0])
	assert.Equal(t, "HTTP Response", logger.messages[1])
}

func TestClient_ContextCancellation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := internalhttp.NewClient(server.URL, fastRetry())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Get(ctx, "/", nil)
	require.Error(t, err)
}
