package stac

import (
	"encoding/json"
)

// Link represents a STAC hypermedia link. Links returned by search
// endpoints may carry the extended fields Method, Body, and Merge to
// describe how the next page must be requested.
type Link struct {
	Rel    string         `json:"rel"              yaml:"rel"`
	Href   string         `json:"href"             yaml:"href"`
	Type   string         `json:"type,omitempty"   yaml:"type,omitempty"`
	Title  string         `json:"title,omitempty"  yaml:"title,omitempty"`
	Method string         `json:"method,omitempty" yaml:"method,omitempty"`
	Body   map[string]any `json:"body,omitempty"   yaml:"body,omitempty"`
	Merge  bool           `json:"merge,omitempty"  yaml:"merge,omitempty"`
}

// Links is an ordered list of links.
type Links []Link

// Find returns the first link with the given rel, or nil.
func (l Links) Find(rel string) *Link {
	for i := range l {
		if l[i].Rel == rel {
			return &l[i]
		}
	}

	return nil
}

// Asset describes a file associated with an item.
type Asset struct {
	Href  string   `json:"href"            yaml:"href"`
	Type  string   `json:"type,omitempty"  yaml:"type,omitempty"`
	Title string   `json:"title,omitempty" yaml:"title,omitempty"`
	Roles []string `json:"roles,omitempty" yaml:"roles,omitempty"`
}

// Item represents a STAC item (a GeoJSON feature). Geometry is kept raw;
// this client queries items, it does not interpret their geometries.
type Item struct {
	Type        string           `json:"type"                   yaml:"type"`
	StacVersion string           `json:"stac_version,omitempty" yaml:"stac_version,omitempty"`
	ID          string           `json:"id"                     yaml:"id"`
	Collection  string           `json:"collection,omitempty"   yaml:"collection,omitempty"`
	Geometry    json.RawMessage  `json:"geometry,omitempty"     yaml:"-"`
	BBox        []float64        `json:"bbox,omitempty"         yaml:"bbox,omitempty"`
	Properties  map[string]any   `json:"properties"             yaml:"properties"`
	Assets      map[string]Asset `json:"assets,omitempty"       yaml:"assets,omitempty"`
	Links       Links            `json:"links,omitempty"        yaml:"-"`
}

// SearchContext is the context extension object some servers attach to a
// page of results.
type SearchContext struct {
	Matched  *int `json:"matched,omitempty"`
	Returned int  `json:"returned,omitempty"`
	Limit    int  `json:"limit,omitempty"`
}

// ItemCollection is one page of search results: a GeoJSON
// FeatureCollection envelope with pagination links and an optional match
// estimate under either numberMatched or context.matched.
type ItemCollection struct {
	Type           string         `json:"type"`
	Features       []*Item        `json:"features"`
	Links          Links          `json:"links,omitempty"`
	NumberMatched  *int           `json:"numberMatched,omitempty"`
	NumberReturned *int           `json:"numberReturned,omitempty"`
	Context        *SearchContext `json:"context,omitempty"`
}

// Matched returns the server's match-count estimate for this page, or
// false when the server did not include one.
func (c *ItemCollection) Matched() (int, bool) {
	if c.Context != nil && c.Context.Matched != nil {
		return *c.Context.Matched, true
	}

	if c.NumberMatched != nil {
		return *c.NumberMatched, true
	}

	return 0, false
}

// NextLink returns the page's continuation link, or nil when this is the
// last page.
func (c *ItemCollection) NextLink() *Link {
	return c.Links.Find("next")
}

// Collection represents a STAC collection. Extent and summaries are kept
// raw: the client lists and resolves collections, it does not model them.
type Collection struct {
	Type        string          `json:"type,omitempty"        yaml:"type,omitempty"`
	StacVersion string          `json:"stac_version,omitempty" yaml:"stac_version,omitempty"`
	ID          string          `json:"id"                    yaml:"id"`
	Title       string          `json:"title,omitempty"       yaml:"title,omitempty"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Keywords    []string        `json:"keywords,omitempty"    yaml:"keywords,omitempty"`
	License     string          `json:"license,omitempty"     yaml:"license,omitempty"`
	Extent      json.RawMessage `json:"extent,omitempty"      yaml:"-"`
	Summaries   json.RawMessage `json:"summaries,omitempty"   yaml:"-"`
	Links       Links           `json:"links,omitempty"       yaml:"-"`
}

// CollectionsPage is one page of a /collections listing.
type CollectionsPage struct {
	Collections    []*Collection  `json:"collections"`
	Links          Links          `json:"links,omitempty"`
	NumberMatched  *int           `json:"numberMatched,omitempty"`
	NumberReturned *int           `json:"numberReturned,omitempty"`
	Context        *SearchContext `json:"context,omitempty"`
}

// Matched returns the server's match-count estimate for this page, or
// false when the server did not include one.
func (p *CollectionsPage) Matched() (int, bool) {
	if p.Context != nil && p.Context.Matched != nil {
		return *p.Context.Matched, true
	}

	if p.NumberMatched != nil {
		return *p.NumberMatched, true
	}

	return 0, false
}

// NextLink returns the page's continuation link, or nil when this is the
// last page.
func (p *CollectionsPage) NextLink() *Link {
	return p.Links.Find("next")
}

// Catalog is the landing document of a STAC API: the conformance-class
// list plus the declared relation links (search, data, next, ...).
type Catalog struct {
	Type        string   `json:"type,omitempty"`
	ID          string   `json:"id"`
	StacVersion string   `json:"stac_version,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	ConformsTo  []string `json:"conformsTo,omitempty"`
	Links       Links    `json:"links,omitempty"`
}
