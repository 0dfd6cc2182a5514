package stac

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/stacq-io/stacq/internal/metrics"
)

const (
	// DefaultLimit is the page size recommended to the server when the
	// caller does not set one.
	DefaultLimit = 100

	// MaxLimit is the largest page size the API accepts.
	MaxLimit = 10000
)

// FieldsSpec selects which item fields the server should return.
type FieldsSpec struct {
	Include []string `json:"include,omitempty" yaml:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// FieldsFromString parses "a,+b,-c" into include/exclude sets.
func FieldsFromString(value string) *FieldsSpec {
	return FieldsFromStrings(strings.Split(value, ","))
}

// FieldsFromStrings parses prefixed field names; no prefix means include.
func FieldsFromStrings(fields []string) *FieldsSpec {
	spec := &FieldsSpec{}

	for _, field := range fields {
		switch {
		case strings.HasPrefix(field, "-"):
			spec.Exclude = append(spec.Exclude, field[1:])
		case strings.HasPrefix(field, "+"):
			spec.Include = append(spec.Include, field[1:])
		default:
			spec.Include = append(spec.Include, field)
		}
	}

	return spec
}

// String renders the compact GET form.
func (f *FieldsSpec) String() string {
	parts := make([]string, 0, len(f.Include)+len(f.Exclude))

	for _, field := range f.Include {
		parts = append(parts, "+"+field)
	}

	for _, field := range f.Exclude {
		parts = append(parts, "-"+field)
	}

	return strings.Join(parts, ",")
}

// SearchSpec is the logical search request. It is immutable once handed
// to NewSearch; the search keeps its own normalized copy.
type SearchSpec struct {
	// Limit is the page size recommended to the server. Zero means
	// DefaultLimit. Must be between 1 and MaxLimit when set.
	Limit int

	// MaxItems caps the total number of items yielded across all pages.
	// Nil means unbounded. A zero cap is valid and yields nothing.
	MaxItems *int

	IDs         []string
	Collections []string

	// BBox is a 2D or 3D bounding box: minx, miny, (minz,) maxx, maxy
	// (, maxz).
	BBox []float64

	// Intersects is a GeoJSON geometry object.
	Intersects json.RawMessage

	// Datetime is an instant or interval; see FormatDatetime for the
	// accepted forms.
	Datetime string

	// Filter is a per-item-property filter; see ParseShorthand and the
	// other Filter constructors.
	Filter *Filter

	Sort   SortSpec
	Fields *FieldsSpec

	// FreeText is the free-text query parameter (q).
	FreeText string

	// Method forces GET or POST instead of the capability-derived
	// choice. Leave empty to let the search decide.
	Method string
}

// Modifier is called once per item before the item is handed to the
// caller, e.g. to sign asset URLs. It must mutate the item in place; a
// returned value is ignored, and returning a different item than was
// passed in is reported as a usage mistake.
type Modifier func(item *Item) *Item

// SearchOption configures a Search.
type SearchOption func(*Search)

// WithConformance gates capability-dependent features against the given
// set.
func WithConformance(set *ConformanceSet) SearchOption {
	return func(s *Search) { s.conformance = set }
}

// WithDiagnostics routes warning signals to the given sink.
func WithDiagnostics(sink DiagnosticSink) SearchOption {
	return func(s *Search) { s.sink = sink }
}

// WithLogger sets the search logger.
func WithLogger(logger Logger) SearchOption {
	return func(s *Search) { s.logger = logger }
}

// WithModifier sets the per-item modifier callback.
func WithModifier(modifier Modifier) SearchOption {
	return func(s *Search) { s.modifier = modifier }
}

// Search is a deferred query against a search endpoint. Nothing is sent
// until the caller pulls the first item or page. A Search may be
// iterated multiple times; each call to Items, Pages, or Collect starts
// a fresh pass with its own state. A single iterator must not be driven
// from two goroutines.
type Search struct {
	transport   Transport
	sink        DiagnosticSink
	logger      Logger
	conformance *ConformanceSet
	modifier    Modifier

	url      string
	method   string
	maxItems *int

	// params is the canonical POST-form parameter map; the GET encoding
	// is derived from it.
	params map[string]any
	filter *Filter
}

// NewSearch validates and normalizes a SearchSpec against a search
// endpoint. All parsing and capability gating happens here,
// synchronously, so a malformed request never costs a network call.
func NewSearch(transport Transport, searchURL string, spec *SearchSpec, opts ...SearchOption) (*Search, error) {
	search := &Search{
		transport: transport,
		sink:      NopSink{},
		url:       searchURL,
	}

	for _, opt := range opts {
		opt(search)
	}

	if spec == nil {
		spec = &SearchSpec{}
	}

	err := search.normalize(spec)
	if err != nil {
		return nil, err
	}

	return search, nil
}

func (s *Search) normalize(spec *SearchSpec) error {
	limit := spec.Limit
	if limit == 0 {
		limit = DefaultLimit
	}

	if limit < 1 || limit > MaxLimit {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, spec.Limit)
	}

	if spec.MaxItems != nil {
		if *spec.MaxItems < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidMaxItems, *spec.MaxItems)
		}

		capped := *spec.MaxItems
		s.maxItems = &capped

		if capped > 0 && limit > capped {
			limit = capped
		}
	}

	datetime, err := FormatDatetime(spec.Datetime)
	if err != nil {
		return err
	}

	err = spec.Sort.Validate()
	if err != nil {
		return err
	}

	s.gateCapabilities(spec)

	params := map[string]any{"limit": limit}

	if len(spec.BBox) > 0 {
		params["bbox"] = spec.BBox
	}

	if datetime != "" {
		params["datetime"] = datetime
	}

	if len(spec.IDs) > 0 {
		params["ids"] = spec.IDs
	}

	if len(spec.Collections) > 0 {
		params["collections"] = spec.Collections
	}

	if len(spec.Intersects) > 0 {
		params["intersects"] = spec.Intersects
	}

	if spec.Filter != nil {
		params["filter"] = spec.Filter.Payload()
		params["filter-lang"] = spec.Filter.Lang()
		s.filter = spec.Filter
	}

	if len(spec.Sort) > 0 {
		params["sortby"] = spec.Sort
	}

	if spec.Fields != nil {
		params["fields"] = spec.Fields
	}

	if spec.FreeText != "" {
		params["q"] = spec.FreeText
	}

	s.params = params

	return s.chooseMethod(spec)
}

// gateCapabilities warns, at most once per search, for every requested
// feature the server does not advertise. The request is still attempted:
// servers routinely under-report conformance, so refusing outright would
// break more searches than it would save.
func (s *Search) gateCapabilities(spec *SearchSpec) {
	if s.conformance == nil {
		return
	}

	checks := []struct {
		used  bool
		class ConformanceClass
	}{
		{spec.Filter != nil, ConformanceFilter},
		{len(spec.Sort) > 0, ConformanceSort},
		{spec.Fields != nil, ConformanceFields},
		{spec.FreeText != "", ConformanceFreeText},
	}

	for _, check := range checks {
		if check.used && !s.conformance.Implements(check.class) {
			s.sink.Emit(Signal{
				Kind:    SignalDoesNotConformTo,
				Message: fmt.Sprintf("server does not conform to %s", check.class),
			})
		}
	}
}

// chooseMethod picks the request encoding. The choice is deterministic
// for a given spec and conformance set: POST only when the spec carries
// constructs that need a structured body and the server supports search
// request bodies, GET otherwise.
func (s *Search) chooseMethod(spec *SearchSpec) error {
	switch spec.Method {
	case "":
	case http.MethodGet, http.MethodPost:
		s.method = spec.Method

		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, spec.Method)
	}

	needsBody := len(spec.Intersects) > 0 ||
		(spec.Filter != nil && spec.Filter.Lang() == FilterLangJSON)

	supportsBody := s.conformance != nil && s.conformance.Implements(ConformanceItemSearch)

	if needsBody && supportsBody {
		s.method = http.MethodPost
	} else {
		s.method = http.MethodGet
	}

	return nil
}

// firstRequest builds the request for the first page.
func (s *Search) firstRequest() *Request {
	if s.method == http.MethodPost {
		return &Request{Method: http.MethodPost, Path: s.url, Body: s.params}
	}

	return &Request{Method: http.MethodGet, Path: s.url, Query: s.queryValues()}
}

func (s *Search) queryValues() url.Values {
	return encodeQuery(s.params)
}

// encodeQuery derives the GET encoding from a canonical parameter map:
// arrays comma-join, geometries and filters become compact JSON text,
// sort and fields use their prefixed string forms.
func encodeQuery(params map[string]any) url.Values {
	values := url.Values{}

	for key, param := range params {
		switch v := param.(type) {
		case int:
			values.Set(key, strconv.Itoa(v))
		case string:
			values.Set(key, v)
		case []string:
			values.Set(key, strings.Join(v, ","))
		case []float64:
			parts := make([]string, len(v))
			for i, f := range v {
				parts[i] = strconv.FormatFloat(f, 'f', -1, 64)
			}

			values.Set(key, strings.Join(parts, ","))
		case json.RawMessage:
			values.Set(key, string(compactJSON(v)))
		case SortSpec:
			values.Set(key, v.String())
		case *FieldsSpec:
			values.Set(key, v.String())
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				continue
			}

			values.Set(key, string(encoded))
		}
	}

	return values
}

// URLWithParameters returns the search URL with the GET-encoded
// parameters attached, regardless of the method the search would use.
func (s *Search) URLWithParameters() string {
	query := s.queryValues().Encode()
	if query == "" {
		return s.url
	}

	separator := "?"
	if strings.Contains(s.url, "?") {
		separator = "&"
	}

	return s.url + separator + query
}

// Method returns the HTTP method the search will use for its first page.
func (s *Search) Method() string {
	return s.method
}

// Matched returns the server's total-match estimate for this search
// using a single limit=1 probe. The second return is false when the
// server does not report counts; that condition is also surfaced as a
// warning signal.
func (s *Search) Matched(ctx context.Context) (int, bool, error) {
	probe := *s
	probeParams := make(map[string]any, len(s.params))

	for key, value := range s.params {
		probeParams[key] = value
	}

	probeParams["limit"] = 1
	probe.params = probeParams

	page, err := probe.fetch(ctx, probe.firstRequest())
	if err != nil {
		return 0, false, err
	}

	matched, ok := page.Matched()
	if !ok {
		s.sink.Emit(Signal{
			Kind:    SignalMissingMatched,
			Message: "numberMatched or context.matched not in response",
		})

		return 0, false, nil
	}

	return matched, true, nil
}

// fetch issues one request and decodes the page envelope. A POST
// rejected with 405 is re-encoded as a GET against the same target, and
// later requests use GET as well. Servers that return a bare item array
// instead of an envelope are tolerated.
func (s *Search) fetch(ctx context.Context, req *Request) (*ItemCollection, error) {
	resp, err := s.transport.Do(ctx, req)
	if err != nil {
		apiErr := &APIError{}
		if req.Method == http.MethodPost && errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusMethodNotAllowed {
			s.sink.Emit(Signal{
				Kind:    SignalMethodFallback,
				Message: "server rejected POST search, falling back to GET",
			})
			s.method = http.MethodGet

			return s.fetch(ctx, getFallback(req))
		}

		return nil, err
	}

	metrics.ObservePageFetched()

	return decodePage(resp.Body)
}

// getFallback translates a rejected POST into the equivalent GET. The
// target and body come from the failing request itself, so a 405 on a
// continuation request keeps its position instead of restarting the
// search from the first page.
func getFallback(req *Request) *Request {
	fallback := &Request{Method: http.MethodGet, Path: req.Path}

	if body, ok := req.Body.(map[string]any); ok {
		fallback.Query = encodeQuery(body)
	}

	return fallback
}

func decodePage(body []byte) (*ItemCollection, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var items []*Item

		err := json.Unmarshal(body, &items)
		if err != nil {
			return nil, fmt.Errorf("decoding page: %w", err)
		}

		return &ItemCollection{Type: "FeatureCollection", Features: items}, nil
	}

	var page ItemCollection

	err := json.Unmarshal(body, &page)
	if err != nil {
		return nil, fmt.Errorf("decoding page: %w", err)
	}

	return &page, nil
}

func compactJSON(raw json.RawMessage) []byte {
	var buf bytes.Buffer

	err := json.Compact(&buf, raw)
	if err != nil {
		return raw
	}

	return buf.Bytes()
}
