package stac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stacq-io/stacq/internal/metrics"
)

// CollectionSearchSpec is the logical collection search request. It
// reuses the item-search building blocks: the same bounding box shape,
// datetime forms, and sort specification.
type CollectionSearchSpec struct {
	// Limit is the page size recommended to the server. Zero means
	// DefaultLimit. Must be between 1 and MaxLimit when set.
	Limit int

	// MaxCollections caps the total number of collections yielded across
	// all pages. Nil means unbounded.
	MaxCollections *int

	// BBox restricts results to collections whose spatial extent
	// intersects the box.
	BBox []float64

	// Datetime restricts results to collections whose temporal extent
	// overlaps the instant or interval; see FormatDatetime for the
	// accepted forms.
	Datetime string

	// FreeText is the free-text query parameter (q), matched against
	// collection titles, descriptions, and keywords.
	FreeText string

	Sort SortSpec
}

// CollectionSearchOption configures a CollectionSearch.
type CollectionSearchOption func(*CollectionSearch)

// WithCollectionConformance gates server-side filtering against the
// given set.
func WithCollectionConformance(set *ConformanceSet) CollectionSearchOption {
	return func(cs *CollectionSearch) { cs.conformance = set }
}

// WithCollectionDiagnostics routes warning signals to the given sink.
func WithCollectionDiagnostics(sink DiagnosticSink) CollectionSearchOption {
	return func(cs *CollectionSearch) { cs.sink = sink }
}

// WithCollectionLogger sets the search logger.
func WithCollectionLogger(logger Logger) CollectionSearchOption {
	return func(cs *CollectionSearch) { cs.logger = logger }
}

// CollectionSearch is a deferred query against a catalog's collections
// endpoint. Servers advertising the collection-search capability filter
// on their side; for the rest, the full listing is walked and filtered
// locally. Nothing is sent until the caller pulls the first page.
type CollectionSearch struct {
	transport   Transport
	sink        DiagnosticSink
	logger      Logger
	conformance *ConformanceSet

	url            string
	maxCollections *int
	params         map[string]any

	// clientSide holds the filters applied locally when the server does
	// not implement collection search.
	clientSide bool
	freeText   string
	bbox       []float64
	interval   *timeInterval
}

// NewCollectionSearch validates and normalizes a CollectionSearchSpec
// against a collections endpoint.
func NewCollectionSearch(transport Transport, collectionsURL string, spec *CollectionSearchSpec, opts ...CollectionSearchOption) (*CollectionSearch, error) {
	search := &CollectionSearch{
		transport: transport,
		sink:      NopSink{},
		url:       collectionsURL,
	}

	for _, opt := range opts {
		opt(search)
	}

	if spec == nil {
		spec = &CollectionSearchSpec{}
	}

	err := search.normalize(spec)
	if err != nil {
		return nil, err
	}

	return search, nil
}

func (cs *CollectionSearch) normalize(spec *CollectionSearchSpec) error {
	limit := spec.Limit
	if limit == 0 {
		limit = DefaultLimit
	}

	if limit < 1 || limit > MaxLimit {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, spec.Limit)
	}

	if spec.MaxCollections != nil {
		if *spec.MaxCollections < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidMaxCollections, *spec.MaxCollections)
		}

		capped := *spec.MaxCollections
		cs.maxCollections = &capped

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

	filtered := spec.FreeText != "" || len(spec.BBox) > 0 || datetime != "" || len(spec.Sort) > 0

	if filtered && cs.conformance != nil && !cs.conformance.Implements(ConformanceCollectionSearch) {
		cs.clientSide = true
		cs.sink.Emit(Signal{
			Kind:    SignalDoesNotConformTo,
			Message: fmt.Sprintf("server does not conform to %s, filtering client-side", ConformanceCollectionSearch),
		})
	}

	params := map[string]any{"limit": limit}

	if cs.clientSide {
		// The plain listing is requested and filtered locally. Sort
		// order cannot be replicated, so the listing order stands.
		cs.freeText = spec.FreeText
		cs.bbox = spec.BBox

		cs.interval, err = parseInterval(datetime)
		if err != nil {
			return err
		}

		cs.params = params

		return nil
	}

	if spec.FreeText != "" {
		params["q"] = spec.FreeText
	}

	if len(spec.BBox) > 0 {
		params["bbox"] = spec.BBox
	}

	if datetime != "" {
		params["datetime"] = datetime
	}

	if len(spec.Sort) > 0 {
		params["sortby"] = spec.Sort
	}

	cs.params = params

	return nil
}

func (cs *CollectionSearch) firstRequest() *Request {
	return &Request{Method: http.MethodGet, Path: cs.url, Query: encodeQuery(cs.params)}
}

func (cs *CollectionSearch) fetchPage(ctx context.Context, req *Request) (*CollectionsPage, error) {
	resp, err := cs.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	metrics.ObservePageFetched()

	var page CollectionsPage

	err = json.Unmarshal(resp.Body, &page)
	if err != nil {
		return nil, fmt.Errorf("decoding collections page: %w", err)
	}

	return &page, nil
}

// filterPage drops the collections that do not satisfy the local
// filters. Server-side searches pass through untouched.
func (cs *CollectionSearch) filterPage(page *CollectionsPage) {
	if !cs.clientSide {
		return
	}

	kept := page.Collections[:0]

	for _, collection := range page.Collections {
		if cs.matches(collection) {
			kept = append(kept, collection)
		}
	}

	page.Collections = kept
}

func (cs *CollectionSearch) matches(collection *Collection) bool {
	if !matchesFreeText(collection, cs.freeText) {
		return false
	}

	if len(cs.bbox) == 0 && cs.interval == nil {
		return true
	}

	extent := &collectionExtent{}
	if len(collection.Extent) > 0 {
		if err := json.Unmarshal(collection.Extent, extent); err != nil {
			extent = &collectionExtent{}
		}
	}

	return matchesBBox(extent, cs.bbox) && matchesInterval(extent, cs.interval)
}

// Pages returns a lazy page iterator over the matching collections.
func (cs *CollectionSearch) Pages(ctx context.Context) *CollectionPageIterator {
	return &CollectionPageIterator{ctx: ctx, search: cs}
}

// Collect eagerly drains the search into a single slice, up to
// MaxCollections.
func (cs *CollectionSearch) Collect(ctx context.Context) ([]*Collection, error) {
	var collections []*Collection

	pages := cs.Pages(ctx)

	for pages.HasNext() {
		page, err := pages.Next()
		if errors.Is(err, ErrNoMorePages) {
			break
		}

		if err != nil {
			return collections, err
		}

		collections = append(collections, page.Collections...)
	}

	return collections, nil
}

// Matched returns the server's total-match estimate using a single
// limit=1 probe. With client-side filtering the server's count covers
// the unfiltered listing, so no estimate is available.
func (cs *CollectionSearch) Matched(ctx context.Context) (int, bool, error) {
	if cs.clientSide {
		cs.sink.Emit(Signal{
			Kind:    SignalMissingMatched,
			Message: "match count unavailable with client-side filtering",
		})

		return 0, false, nil
	}

	probe := *cs
	probeParams := make(map[string]any, len(cs.params))

	for key, value := range cs.params {
		probeParams[key] = value
	}

	probeParams["limit"] = 1
	probe.params = probeParams

	page, err := probe.fetchPage(ctx, probe.firstRequest())
	if err != nil {
		return 0, false, err
	}

	matched, ok := page.Matched()
	if !ok {
		cs.sink.Emit(Signal{
			Kind:    SignalMissingMatched,
			Message: "numberMatched or context.matched not in response",
		})

		return 0, false, nil
	}

	return matched, true, nil
}

// CollectionPageIterator walks a collection search page by page,
// following the server's next links. Pages emptied by client-side
// filtering are skipped, not treated as the end of the listing.
type CollectionPageIterator struct {
	ctx    context.Context
	search *CollectionSearch

	started   bool
	exhausted bool
	abortErr  error

	next       *Request
	lastSig    string
	yielded    int
	matched    int
	matchedOK  bool
	warnedOnce bool
}

// HasNext reports whether iteration may produce more pages.
func (it *CollectionPageIterator) HasNext() bool {
	return !it.exhausted && it.abortErr == nil
}

// Err returns the failure that aborted iteration, if any.
func (it *CollectionPageIterator) Err() error {
	return it.abortErr
}

// Matched returns the most recent match-count estimate seen on a page,
// and false if no page reported one. Client-side searches never report
// one: the server's count covers the unfiltered listing.
func (it *CollectionPageIterator) Matched() (int, bool) {
	return it.matched, it.matchedOK
}

// Next fetches and returns the next non-empty page. It returns
// ErrNoMorePages on normal exhaustion; the final page is truncated to
// the remaining MaxCollections budget rather than dropped.
func (it *CollectionPageIterator) Next() (*CollectionsPage, error) {
	if it.abortErr != nil {
		return nil, it.abortErr
	}

	if it.exhausted {
		return nil, ErrNoMorePages
	}

	for {
		req := it.next
		if !it.started {
			it.started = true
			req = it.search.firstRequest()
		}

		if req == nil {
			it.exhausted = true

			return nil, ErrNoMorePages
		}

		it.lastSig = requestSignature(req)

		page, err := it.search.fetchPage(it.ctx, req)
		if err != nil {
			it.abortErr = err

			return nil, err
		}

		it.recordMatched(page)
		it.search.filterPage(page)

		if len(page.Collections) == 0 {
			it.advance(page)

			if it.exhausted {
				return nil, ErrNoMorePages
			}

			continue
		}

		it.truncateToBudget(page)

		if !it.exhausted {
			it.advance(page)
		}

		return page, nil
	}
}

func (it *CollectionPageIterator) recordMatched(page *CollectionsPage) {
	if it.search.clientSide {
		return
	}

	matched, ok := page.Matched()
	if ok {
		it.matched = matched
		it.matchedOK = true

		return
	}

	if !it.matchedOK && !it.warnedOnce {
		it.warnedOnce = true
		it.search.sink.Emit(Signal{
			Kind:    SignalMissingMatched,
			Message: "numberMatched or context.matched not in response",
		})
	}
}

func (it *CollectionPageIterator) truncateToBudget(page *CollectionsPage) {
	maxCollections := it.search.maxCollections
	if maxCollections == nil {
		it.yielded += len(page.Collections)

		return
	}

	remaining := *maxCollections - it.yielded
	if remaining <= 0 {
		page.Collections = nil
		it.exhausted = true

		return
	}

	if len(page.Collections) > remaining {
		page.Collections = page.Collections[:remaining]
	}

	it.yielded += len(page.Collections)

	if it.yielded >= *maxCollections {
		it.exhausted = true
	}
}

func (it *CollectionPageIterator) advance(page *CollectionsPage) {
	link := page.NextLink()
	if link == nil {
		it.exhausted = true
		it.next = nil

		return
	}

	next := &Request{Method: http.MethodGet, Path: link.Href}

	if requestSignature(next) == it.lastSig {
		it.search.sink.Emit(Signal{
			Kind:    SignalContinuationCycle,
			Message: "next link points at the current page, stopping iteration",
		})
		it.exhausted = true
		it.next = nil

		return
	}

	it.next = next
}

// timeInterval is a closed or half-open time range; nil ends are open.
type timeInterval struct {
	start *time.Time
	end   *time.Time
}

// parseInterval reads a normalized datetime filter back into bounds for
// extent overlap checks. A single instant becomes a degenerate interval.
func parseInterval(datetime string) (*timeInterval, error) {
	if datetime == "" {
		return nil, nil
	}

	components := strings.SplitN(datetime, "/", 2)

	start, err := parseIntervalEnd(components[0])
	if err != nil {
		return nil, err
	}

	if len(components) == 1 {
		return &timeInterval{start: start, end: start}, nil
	}

	end, err := parseIntervalEnd(components[1])
	if err != nil {
		return nil, err
	}

	return &timeInterval{start: start, end: end}, nil
}

func parseIntervalEnd(value string) (*time.Time, error) {
	if value == "" || value == ".." {
		return nil, nil
	}

	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDatetime, value)
	}

	return &parsed, nil
}

// collectionExtent is the subset of a collection's extent object needed
// for client-side filtering.
type collectionExtent struct {
	Spatial struct {
		BBox [][]float64 `json:"bbox"`
	} `json:"spatial"`
	Temporal struct {
		Interval [][]*string `json:"interval"`
	} `json:"temporal"`
}

func matchesFreeText(collection *Collection, q string) bool {
	if q == "" {
		return true
	}

	needle := strings.ToLower(q)

	if strings.Contains(strings.ToLower(collection.Title), needle) {
		return true
	}

	if strings.Contains(strings.ToLower(collection.Description), needle) {
		return true
	}

	for _, keyword := range collection.Keywords {
		if strings.Contains(strings.ToLower(keyword), needle) {
			return true
		}
	}

	return false
}

// matchesBBox reports whether any of the collection's spatial boxes
// intersects the query box. Collections without a declared extent are
// kept: absence of data is not a mismatch.
func matchesBBox(extent *collectionExtent, bbox []float64) bool {
	if len(bbox) == 0 {
		return true
	}

	if len(extent.Spatial.BBox) == 0 {
		return true
	}

	minX, minY, maxX, maxY := bboxCorners(bbox)

	for _, candidate := range extent.Spatial.BBox {
		if len(candidate) < 4 {
			continue
		}

		cMinX, cMinY, cMaxX, cMaxY := bboxCorners(candidate)

		if minX <= cMaxX && maxX >= cMinX && minY <= cMaxY && maxY >= cMinY {
			return true
		}
	}

	return false
}

// bboxCorners projects a 2D or 3D bounding box onto its horizontal
// corners.
func bboxCorners(bbox []float64) (minX, minY, maxX, maxY float64) {
	if len(bbox) >= 6 {
		return bbox[0], bbox[1], bbox[3], bbox[4]
	}

	return bbox[0], bbox[1], bbox[2], bbox[3]
}

// matchesInterval reports whether any of the collection's temporal
// intervals overlaps the query interval. Collections without a declared
// extent are kept.
func matchesInterval(extent *collectionExtent, query *timeInterval) bool {
	if query == nil {
		return true
	}

	if len(extent.Temporal.Interval) == 0 {
		return true
	}

	for _, candidate := range extent.Temporal.Interval {
		if len(candidate) < 2 {
			continue
		}

		if overlaps(query, parseExtentTime(candidate[0]), parseExtentTime(candidate[1])) {
			return true
		}
	}

	return false
}

func parseExtentTime(value *string) *time.Time {
	if value == nil {
		return nil
	}

	parsed, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		return nil
	}

	return &parsed
}

func overlaps(query *timeInterval, start, end *time.Time) bool {
	if query.end != nil && start != nil && start.After(*query.end) {
		return false
	}

	if query.start != nil && end != nil && end.Before(*query.start) {
		return false
	}

	return true
}
