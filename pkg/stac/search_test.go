package stac_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacq-io/stacq/pkg/stac"
)

// fakeTransport scripts responses for one request handler and records
// every request it sees.
type fakeTransport struct {
	requests []*stac.Request
	handler  func(req *stac.Request) (*stac.Response, error)
}

func (f *fakeTransport) Do(_ context.Context, req *stac.Request) (*stac.Response, error) {
	f.requests = append(f.requests, req)

	return f.handler(req)
}

func jsonResponse(t *testing.T, v any) *stac.Response {
	t.Helper()

	body, err := json.Marshal(v)
	require.NoError(t, err)

	return &stac.Response{StatusCode: http.StatusOK, Body: body}
}

func makeItems(prefix string, n int) []*stac.Item {
	items := make([]*stac.Item, 0, n)

	for i := 0; i < n; i++ {
		items = append(items, &stac.Item{
			Type: "Feature",
			ID:   prefix + "-" + string(rune('a'+i)),
		})
	}

	return items
}

func searchConformance() *stac.ConformanceSet {
	return stac.NewConformanceSet([]string{
		"https://api.stacspec.org/v1.0.0/core",
		"https://api.stacspec.org/v1.0.0/item-search",
		"https://api.stacspec.org/v1.0.0/item-search#sort",
		"https://api.stacspec.org/v1.0.0/item-search#filter",
	}, nil)
}

func TestNewSearch_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		spec stac.SearchSpec
		want error
	}{
		{name: "negative limit", spec: stac.SearchSpec{Limit: -1}, want: stac.ErrInvalidLimit},
		{name: "oversized limit", spec: stac.SearchSpec{Limit: 20000}, want: stac.ErrInvalidLimit},
		{name: "negative max items", spec: stac.SearchSpec{MaxItems: intPtr(-5)}, want: stac.ErrInvalidMaxItems},
		{name: "unknown method", spec: stac.SearchSpec{Method: "PATCH"}, want: stac.ErrUnsupportedMethod},
		{name: "bad datetime", spec: stac.SearchSpec{Datetime: "yesterday"}, want: stac.ErrInvalidDatetime},
		{name: "bad sort", spec: stac.SearchSpec{Sort: stac.SortSpec{{Field: "datetime", Direction: "down"}}}, want: stac.ErrInvalidSortSyntax},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, err := stac.NewSearch(&fakeTransport{}, "/search", &testCase.spec)
			require.ErrorIs(t, err, testCase.want)
		})
	}
}

func intPtr(v int) *int { return &v }

func TestSearch_MethodSelection(t *testing.T) {
	t.Parallel()

	geometry := json.RawMessage(`{"type":"Point","coordinates":[0,0]}`)
	jsonFilter := stac.NewJSONFilter(json.RawMessage(`{"op":"<","args":[{"property":"gsd"},10]}`))

	tests := []struct {
		name        string
		spec        stac.SearchSpec
		conformance *stac.ConformanceSet
		want        string
	}{
		{
			name:        "plain search uses get",
			spec:        stac.SearchSpec{Collections: []string{"c1"}},
			conformance: searchConformance(),
			want:        http.MethodGet,
		},
		{
			name:        "geometry with capable server uses post",
			spec:        stac.SearchSpec{Intersects: geometry},
			conformance: searchConformance(),
			want:        http.MethodPost,
		},
		{
			name: "geometry without conformance stays get",
			spec: stac.SearchSpec{Intersects: geometry},
			want: http.MethodGet,
		},
		{
			name:        "structured filter uses post",
			spec:        stac.SearchSpec{Filter: jsonFilter},
			conformance: searchConformance(),
			want:        http.MethodPost,
		},
		{
			name:        "text filter stays get",
			spec:        stac.SearchSpec{Filter: stac.NewTextFilter("gsd < 10")},
			conformance: searchConformance(),
			want:        http.MethodGet,
		},
		{
			name:        "explicit get overrides",
			spec:        stac.SearchSpec{Intersects: geometry, Method: http.MethodGet},
			conformance: searchConformance(),
			want:        http.MethodGet,
		},
		{
			name: "explicit post overrides",
			spec: stac.SearchSpec{Method: http.MethodPost},
			want: http.MethodPost,
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			opts := []stac.SearchOption{}
			if testCase.conformance != nil {
				opts = append(opts, stac.WithConformance(testCase.conformance))
			}

			search, err := stac.NewSearch(&fakeTransport{}, "/search", &testCase.spec, opts...)
			require.NoError(t, err)
			assert.Equal(t, testCase.want, search.Method())
		})
	}
}

func TestSearch_URLWithParameters(t *testing.T) {
	t.Parallel()

	search, err := stac.NewSearch(&fakeTransport{}, "https://example.com/search", &stac.SearchSpec{
		Collections: []string{"sentinel-2-l2a", "landsat-c2-l2"},
		BBox:        []float64{-72.5, 40.5, -72, 41},
		Datetime:    "2020",
		Sort:        stac.SortSpec{{Field: "datetime", Direction: stac.SortDesc}},
	})
	require.NoError(t, err)

	parsed, err := url.Parse(search.URLWithParameters())
	require.NoError(t, err)

	query := parsed.Query()
	assert.Equal(t, "100", query.Get("limit"))
	assert.Equal(t, "sentinel-2-l2a,landsat-c2-l2", query.Get("collections"))
	assert.Equal(t, "-72.5,40.5,-72,41", query.Get("bbox"))
	assert.Equal(t, "2020-01-01T00:00:00Z/2020-12-31T23:59:59Z", query.Get("datetime"))
	assert.Equal(t, "-datetime", query.Get("sortby"))
}

func TestSearch_LimitClampedToMaxItems(t *testing.T) {
	t.Parallel()

	search, err := stac.NewSearch(&fakeTransport{}, "/search", &stac.SearchSpec{
		MaxItems: intPtr(10),
	})
	require.NoError(t, err)

	parsed, err := url.Parse(search.URLWithParameters())
	require.NoError(t, err)
	assert.Equal(t, "10", parsed.Query().Get("limit"))
}

func TestSearch_CapabilityWarnings(t *testing.T) {
	t.Parallel()

	// Advertises item search only: sort and free text should each warn.
	conformance := stac.NewConformanceSet([]string{
		"https://api.stacspec.org/v1.0.0/item-search",
	}, nil)

	sink := &stac.CollectorSink{}

	_, err := stac.NewSearch(&fakeTransport{}, "/search", &stac.SearchSpec{
		Sort:     stac.SortSpec{{Field: "datetime", Direction: stac.SortAsc}},
		FreeText: "volcano",
	}, stac.WithConformance(conformance), stac.WithDiagnostics(sink))
	require.NoError(t, err)

	assert.Equal(t, 2, sink.Count(stac.SignalDoesNotConformTo))
}

func TestSearch_PostFallsBackToGetOn405(t *testing.T) {
	t.Parallel()

	page := &stac.ItemCollection{Type: "FeatureCollection", Features: makeItems("item", 2)}

	transport := &fakeTransport{handler: func(req *stac.Request) (*stac.Response, error) {
		if req.Method == http.MethodPost {
			return nil, &stac.APIError{StatusCode: http.StatusMethodNotAllowed}
		}

		return jsonResponse(t, page), nil
	}}

	sink := &stac.CollectorSink{}

	search, err := stac.NewSearch(transport, "/search", &stac.SearchSpec{
		Method: http.MethodPost,
	}, stac.WithDiagnostics(sink))
	require.NoError(t, err)

	items, err := search.Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)

	require.Len(t, transport.requests, 2)
	assert.Equal(t, http.MethodPost, transport.requests[0].Method)
	assert.Equal(t, http.MethodGet, transport.requests[1].Method)
	assert.Equal(t, 1, sink.Count(stac.SignalMethodFallback))
	assert.Equal(t, http.MethodGet, search.Method())
}

func TestSearch_ToleratesBareItemArray(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{handler: func(*stac.Request) (*stac.Response, error) {
		return &stac.Response{
			StatusCode: http.StatusOK,
			Body:       []byte(`[{"type":"Feature","id":"solo","properties":{}}]`),
		}, nil
	}}

	search, err := stac.NewSearch(transport, "/search", nil)
	require.NoError(t, err)

	items, err := search.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "solo", items[0].ID)
}

func TestSearch_Matched(t *testing.T) {
	t.Parallel()

	matched := 1234

	transport := &fakeTransport{handler: func(req *stac.Request) (*stac.Response, error) {
		return jsonResponse(t, &stac.ItemCollection{
			Type:          "FeatureCollection",
			Features:      makeItems("probe", 1),
			NumberMatched: &matched,
		}), nil
	}}

	search, err := stac.NewSearch(transport, "/search", &stac.SearchSpec{Limit: 50})
	require.NoError(t, err)

	count, ok, err := search.Matched(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1234, count)

	// The probe requests a single item and leaves the search untouched.
	require.Len(t, transport.requests, 1)
	assert.Equal(t, "1", transport.requests[0].Query.Get("limit"))

	parsed, err := url.Parse(search.URLWithParameters())
	require.NoError(t, err)
	assert.Equal(t, "50", parsed.Query().Get("limit"))
}

func TestSearch_MatchedMissingWarns(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{handler: func(*stac.Request) (*stac.Response, error) {
		return jsonResponse(t, &stac.ItemCollection{Type: "FeatureCollection"}), nil
	}}

	sink := &stac.CollectorSink{}

	search, err := stac.NewSearch(transport, "/search", nil, stac.WithDiagnostics(sink))
	require.NoError(t, err)

	_, ok, err := search.Matched(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, sink.Count(stac.SignalMissingMatched))
}
