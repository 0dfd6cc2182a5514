package stac_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacq-io/stacq/pkg/stac"
)

func TestConformanceSet_VersionTolerance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		uri   string
		class stac.ConformanceClass
	}{
		{name: "v1.0.0 item search", uri: "https://api.stacspec.org/v1.0.0/item-search", class: stac.ConformanceItemSearch},
		{name: "v1.1.0 item search", uri: "https://api.stacspec.org/v1.1.0/item-search", class: stac.ConformanceItemSearch},
		{name: "release candidate", uri: "https://api.stacspec.org/v1.0.0-rc.1/item-search", class: stac.ConformanceItemSearch},
		{name: "legacy beta search", uri: "http://stacspec.org/spec/api/1.0.0-beta.1/req/stac-search", class: stac.ConformanceItemSearch},
		{name: "core", uri: "https://api.stacspec.org/v1.0.0/core", class: stac.ConformanceCore},
		{name: "query fragment", uri: "https://api.stacspec.org/v1.0.0/item-search#query", class: stac.ConformanceQuery},
		{name: "legacy sort", uri: "http://stacspec.org/spec/api/1.0.0-beta.1/req/sort", class: stac.ConformanceSort},
		{name: "ogc features filter", uri: "http://www.opengis.net/spec/ogcapi-features-3/1.0/conf/features-filter", class: stac.ConformanceFilter},
		{name: "ogc features core", uri: "http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/core", class: stac.ConformanceFeatures},
		{name: "collection search rc", uri: "https://api.stacspec.org/v1.0.0-rc.1/collection-search", class: stac.ConformanceCollectionSearch},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			set := stac.NewConformanceSet([]string{testCase.uri}, nil)
			assert.True(t, set.Implements(testCase.class))
		})
	}
}

func TestConformanceSet_DoesNotMatchOtherClasses(t *testing.T) {
	t.Parallel()

	set := stac.NewConformanceSet([]string{"https://api.stacspec.org/v1.0.0/item-search"}, nil)
	assert.True(t, set.Implements(stac.ConformanceItemSearch))
	assert.False(t, set.Implements(stac.ConformanceSort))
	assert.False(t, set.Implements(stac.ConformanceCollections))
}

func TestConformanceSet_UnknownWarnsOnce(t *testing.T) {
	t.Parallel()

	sink := &stac.CollectorSink{}
	set := stac.NewConformanceSet(nil, sink)

	assert.False(t, set.Known())
	assert.False(t, set.Implements(stac.ConformanceItemSearch))
	assert.False(t, set.Implements(stac.ConformanceSort))
	assert.Equal(t, 1, sink.Count(stac.SignalNoConformance))
}

func TestConformanceSet_AddAndRemove(t *testing.T) {
	t.Parallel()

	set := stac.NewConformanceSet([]string{"https://api.stacspec.org/v1.0.0/core"}, nil)

	require.False(t, set.Implements(stac.ConformanceItemSearch))
	set.Add(stac.ConformanceItemSearch)
	assert.True(t, set.Implements(stac.ConformanceItemSearch))

	// Adding an already-present capability does not duplicate its URI.
	set.Add(stac.ConformanceItemSearch)
	assert.Len(t, set.URIs(), 2)

	set.Remove(stac.ConformanceItemSearch)
	assert.False(t, set.Implements(stac.ConformanceItemSearch))
	assert.True(t, set.Implements(stac.ConformanceCore))
}

func TestConformanceSet_RemoveMatchesEveryVintage(t *testing.T) {
	t.Parallel()

	set := stac.NewConformanceSet([]string{
		"https://api.stacspec.org/v1.0.0/item-search",
		"https://api.stacspec.org/v1.1.0/item-search",
		"https://api.stacspec.org/v1.0.0/core",
	}, nil)

	set.Remove(stac.ConformanceItemSearch)
	assert.Equal(t, []string{"https://api.stacspec.org/v1.0.0/core"}, set.URIs())
}

func TestConformanceClass_ValidURI(t *testing.T) {
	t.Parallel()

	uri := stac.ConformanceItemSearch.ValidURI()
	assert.Equal(t, "https://api.stacspec.org/v1.0.0/item-search", uri)

	set := stac.NewConformanceSet([]string{uri}, nil)
	assert.True(t, set.Implements(stac.ConformanceItemSearch))
}

func TestConformanceSet_URIsReturnsCopy(t *testing.T) {
	t.Parallel()

	set := stac.NewConformanceSet([]string{"https://api.stacspec.org/v1.0.0/core"}, nil)

	uris := set.URIs()
	uris[0] = "mutated"

	assert.Equal(t, []string{"https://api.stacspec.org/v1.0.0/core"}, set.URIs())
}
