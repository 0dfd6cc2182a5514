package stac

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// Pages returns a lazy page iterator over the search results. No request
// is sent until the first Next call.
func (s *Search) Pages(ctx context.Context) *PageIterator {
	return &PageIterator{ctx: ctx, search: s}
}

// Items returns a lazy item iterator over the search results, fetching
// pages as the caller advances across page boundaries.
func (s *Search) Items(ctx context.Context) *ItemIterator {
	return &ItemIterator{pages: s.Pages(ctx)}
}

// Collect eagerly drains the search into a single slice, up to MaxItems.
// With no cap set this downloads every matching item; prefer Items or
// Pages for large result sets. It is a convenience over Pages, not a
// separate retrieval path.
func (s *Search) Collect(ctx context.Context) ([]*Item, error) {
	var items []*Item

	pages := s.Pages(ctx)

	for pages.HasNext() {
		page, err := pages.Next()
		if errors.Is(err, ErrNoMorePages) {
			break
		}

		if err != nil {
			return items, err
		}

		items = append(items, page.Features...)
	}

	return items, nil
}

// PageIterator walks a search page by page, following the server's next
// links. Each fetch happens synchronously inside Next. One iterator owns
// its state exclusively and must not be shared across goroutines; create
// a new iterator to re-run the search.
type PageIterator struct {
	ctx    context.Context
	search *Search

	started   bool
	exhausted bool
	abortErr  error

	next       *Request
	lastSig    string
	yielded    int
	matched    int
	matchedOK  bool
	warnedOnce bool
	modWarned  bool
}

// HasNext reports whether iteration may produce more pages. It is
// optimistic before the first fetch: a server returning an empty first
// page is only discovered by calling Next.
func (it *PageIterator) HasNext() bool {
	return !it.exhausted && it.abortErr == nil
}

// Err returns the failure that aborted iteration, if any. Pages yielded
// before the failure remain valid.
func (it *PageIterator) Err() error {
	return it.abortErr
}

// Matched returns the most recent match-count estimate seen on a page,
// and false if no page reported one yet.
func (it *PageIterator) Matched() (int, bool) {
	return it.matched, it.matchedOK
}

// Next fetches and returns the next page. It returns ErrNoMorePages on
// normal exhaustion: no continuation link, a continuation cycle, an
// empty page, or the MaxItems budget spent. The final page is truncated
// to the remaining budget rather than dropped.
func (it *PageIterator) Next() (*ItemCollection, error) {
	if it.abortErr != nil {
		return nil, it.abortErr
	}

	if it.exhausted {
		return nil, ErrNoMorePages
	}

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

	page, err := it.search.fetch(it.ctx, req)
	if err != nil {
		it.abortErr = err

		return nil, err
	}

	it.recordMatched(page)

	if len(page.Features) == 0 {
		it.exhausted = true

		return nil, ErrNoMorePages
	}

	it.truncateToBudget(page)
	it.applyModifier(page)

	if it.exhausted {
		return page, nil
	}

	it.advance(page)

	return page, nil
}

func (it *PageIterator) recordMatched(page *ItemCollection) {
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

func (it *PageIterator) applyModifier(page *ItemCollection) {
	if it.search.modifier == nil {
		return
	}

	for _, item := range page.Features {
		result := it.search.modifier(item)
		if result != nil && result != item && !it.modWarned {
			it.modWarned = true
			it.search.sink.Emit(Signal{
				Kind:    SignalIgnoredResult,
				Message: "item modifier returned a new item; modifiers must mutate in place",
			})
		}
	}
}

// truncateToBudget trims the page to the remaining MaxItems budget and
// marks the iterator exhausted when the budget is spent.
func (it *PageIterator) truncateToBudget(page *ItemCollection) {
	maxItems := it.search.maxItems
	if maxItems == nil {
		it.yielded += len(page.Features)

		return
	}

	remaining := *maxItems - it.yielded
	if remaining <= 0 {
		page.Features = nil
		it.exhausted = true

		return
	}

	if len(page.Features) > remaining {
		page.Features = page.Features[:remaining]
	}

	it.yielded += len(page.Features)

	if it.yielded >= *maxItems {
		it.exhausted = true
	}
}

// advance prepares the next request from the page's continuation link.
// A link that resolves to the request we just issued would loop forever;
// iteration stops there with a benign signal instead.
func (it *PageIterator) advance(page *ItemCollection) {
	link := page.NextLink()
	if link == nil {
		it.exhausted = true
		it.next = nil

		return
	}

	next := it.search.continuationRequest(link)

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

// continuationRequest builds the next-page request from an extended
// link. The link's own method, target, and body always win over
// re-deriving a request from the search spec, so continuation stays
// idempotent even when the first-page encoding policy would differ.
func (s *Search) continuationRequest(link *Link) *Request {
	method := link.Method
	if method == "" {
		method = http.MethodGet
	}

	if method != http.MethodPost {
		// GET continuation: the parameters are already in the href.
		return &Request{Method: http.MethodGet, Path: link.Href}
	}

	body := link.Body
	if link.Merge {
		merged := make(map[string]any, len(s.params)+len(link.Body))

		for key, value := range s.params {
			merged[key] = value
		}

		for key, value := range link.Body {
			merged[key] = value
		}

		body = merged
	}

	if body == nil {
		body = s.params
	}

	return &Request{Method: http.MethodPost, Path: link.Href, Body: body}
}

// requestSignature is the identity used by the continuation cycle guard.
func requestSignature(req *Request) string {
	sig := req.Method + " " + req.Path

	if len(req.Query) > 0 {
		sig += "?" + req.Query.Encode()
	}

	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err == nil {
			sig += " " + string(encoded)
		}
	}

	return sig
}

// ItemIterator walks a search item by item across page boundaries. The
// page fetch happens inside HasNext or Next, whichever crosses the
// boundary first.
type ItemIterator struct {
	pages *PageIterator
	buf   []*Item
	idx   int
}

// HasNext reports whether another item is available, fetching the next
// page if the current one is spent.
func (it *ItemIterator) HasNext() bool {
	for it.idx >= len(it.buf) {
		if !it.pages.HasNext() {
			return false
		}

		page, err := it.pages.Next()
		if err != nil {
			return false
		}

		it.buf = page.Features
		it.idx = 0
	}

	return true
}

// Next returns the next item, or ErrNoMoreItems after exhaustion. A
// transport failure aborts iteration and is returned as-is; items
// already yielded are unaffected.
func (it *ItemIterator) Next() (*Item, error) {
	if !it.HasNext() {
		if err := it.pages.Err(); err != nil {
			return nil, err
		}

		return nil, ErrNoMoreItems
	}

	item := it.buf[it.idx]
	it.idx++

	return item, nil
}

// Err returns the failure that aborted iteration, if any.
func (it *ItemIterator) Err() error {
	return it.pages.Err()
}

// Matched returns the most recent match-count estimate, if any page
// reported one.
func (it *ItemIterator) Matched() (int, bool) {
	return it.pages.Matched()
}
