package stac

import (
	"regexp"
)

// ConformanceClass identifies a STAC API capability family. Each class
// matches every historical conformance URI that meant the same feature:
// the spec went through many revisions and servers advertise whichever
// vintage they were built against.
type ConformanceClass string

const (
	ConformanceCore             ConformanceClass = "CORE"
	ConformanceItemSearch       ConformanceClass = "ITEM_SEARCH"
	ConformanceContext          ConformanceClass = "CONTEXT"
	ConformanceQuery            ConformanceClass = "QUERY"
	ConformanceFilter           ConformanceClass = "FILTER"
	ConformanceSort             ConformanceClass = "SORT"
	ConformanceFields           ConformanceClass = "FIELDS"
	ConformanceFreeText         ConformanceClass = "FREE_TEXT"
	ConformanceCollections      ConformanceClass = "COLLECTIONS"
	ConformanceCollectionSearch ConformanceClass = "COLLECTION_SEARCH"
	ConformanceFeatures         ConformanceClass = "FEATURES"
)

// versionPattern tolerates any released or pre-release v1 spec revision.
const versionPattern = `https://api\.stacspec\.org/v1\.[0-9]+\.[0-9]+(-[\w\.]+)?`

const legacyPrefix = `http://stacspec\.org/spec/api/1\.0\.0-beta\.1`

type conformanceSpec struct {
	// validURI is the canonical URI recorded when a caller forces the
	// capability with Add.
	validURI string
	pattern  *regexp.Regexp
}

var conformanceSpecs = map[ConformanceClass]conformanceSpec{
	ConformanceCore: {
		validURI: "https://api.stacspec.org/v1.0.0/core",
		pattern:  regexp.MustCompile(`^(` + versionPattern + `/core|` + legacyPrefix + `/core)$`),
	},
	ConformanceItemSearch: {
		validURI: "https://api.stacspec.org/v1.0.0/item-search",
		pattern:  regexp.MustCompile(`^(` + versionPattern + `/item-search|` + legacyPrefix + `/req/stac-search)$`),
	},
	ConformanceContext: {
		validURI: "https://api.stacspec.org/v1.0.0/item-search#context",
		pattern:  regexp.MustCompile(`^(` + versionPattern + `/item-search#context|` + legacyPrefix + `/req/context)$`),
	},
	ConformanceQuery: {
		validURI: "https://api.stacspec.org/v1.0.0/item-search#query",
		pattern:  regexp.MustCompile(`^(` + versionPattern + `/item-search#query|` + legacyPrefix + `/req/query)$`),
	},
	ConformanceFilter: {
		validURI: "https://api.stacspec.org/v1.0.0/item-search#filter",
		pattern:  regexp.MustCompile(`^(` + versionPattern + `/item-search#filter|http://www\.opengis\.net/spec/ogcapi-features-3/1\.0/conf/features-filter)$`),
	},
	ConformanceSort: {
		validURI: "https://api.stacspec.org/v1.0.0/item-search#sort",
		pattern:  regexp.MustCompile(`^(` + versionPattern + `/item-search#sort|` + legacyPrefix + `/req/sort)$`),
	},
	ConformanceFields: {
		validURI: "https://api.stacspec.org/v1.0.0/item-search#fields",
		pattern:  regexp.MustCompile(`^(` + versionPattern + `/item-search#fields|` + legacyPrefix + `/req/fields)$`),
	},
	ConformanceFreeText: {
		validURI: "https://api.stacspec.org/v1.0.0/item-search#free-text",
		pattern:  regexp.MustCompile(`^` + versionPattern + `/item-search#free-text$`),
	},
	ConformanceCollections: {
		validURI: "https://api.stacspec.org/v1.0.0/collections",
		pattern:  regexp.MustCompile(`^` + versionPattern + `/collections$`),
	},
	ConformanceCollectionSearch: {
		validURI: "https://api.stacspec.org/v1.0.0-rc.1/collection-search",
		pattern:  regexp.MustCompile(`^` + versionPattern + `/collection-search$`),
	},
	ConformanceFeatures: {
		validURI: "https://api.stacspec.org/v1.0.0/ogcapi-features",
		pattern:  regexp.MustCompile(`^(` + versionPattern + `/ogcapi-features|http://www\.opengis\.net/spec/ogcapi-features-1/1\.0/conf/core)$`),
	},
}

// ValidURI returns the canonical conformance URI for a class.
func (c ConformanceClass) ValidURI() string {
	return conformanceSpecs[c].validURI
}

// ConformanceSet holds the capability URIs a server advertised in its
// landing document. The set reflects the client's belief about the
// server; Add widens that belief without changing server behavior.
type ConformanceSet struct {
	uris []string
	sink DiagnosticSink

	// warnedUnknown keeps the unknown-state warning to one emission.
	warnedUnknown bool
}

// NewConformanceSet builds a set from a landing document's conformsTo
// list. A nil or empty list is the distinct "unknown" state: membership
// probes return false and emit a NoConformance signal once.
func NewConformanceSet(uris []string, sink DiagnosticSink) *ConformanceSet {
	if sink == nil {
		sink = NopSink{}
	}

	return &ConformanceSet{uris: append([]string(nil), uris...), sink: sink}
}

// Known reports whether the server advertised any conformance data.
func (s *ConformanceSet) Known() bool {
	return len(s.uris) > 0
}

// URIs returns a copy of the advertised conformance URIs.
func (s *ConformanceSet) URIs() []string {
	return append([]string(nil), s.uris...)
}

// Implements reports whether any advertised URI matches the capability,
// either literally or through the class's version-tolerant pattern.
func (s *ConformanceSet) Implements(class ConformanceClass) bool {
	if !s.Known() {
		if !s.warnedUnknown {
			s.warnedUnknown = true
			s.sink.Emit(Signal{
				Kind:    SignalNoConformance,
				Message: "server does not advertise any conformance classes",
			})
		}

		return false
	}

	spec, ok := conformanceSpecs[class]
	if !ok {
		return false
	}

	for _, uri := range s.uris {
		if uri == spec.validURI || spec.pattern.MatchString(uri) {
			return true
		}
	}

	return false
}

// Add records the capability's canonical URI in the set. This overrides
// what the server advertised; use it for servers known to under-report.
func (s *ConformanceSet) Add(class ConformanceClass) {
	if s.Implements(class) {
		return
	}

	s.uris = append(s.uris, conformanceSpecs[class].validURI)
}

// Remove drops every URI matching the capability from the set.
func (s *ConformanceSet) Remove(class ConformanceClass) {
	spec, ok := conformanceSpecs[class]
	if !ok {
		return
	}

	kept := s.uris[:0]

	for _, uri := range s.uris {
		if uri != spec.validURI && !spec.pattern.MatchString(uri) {
			kept = append(kept, uri)
		}
	}

	s.uris = kept
}
