package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacq-io/stacq/internal/constants"
	"github.com/stacq-io/stacq/pkg/stac"
)

func TestCollectionsFlags_Filtered(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		flags collectionsFlags
		want  bool
	}{
		{name: "defaults list plainly", flags: collectionsFlags{maxCollections: -1}, want: false},
		{name: "free text searches", flags: collectionsFlags{freeText: "optical", maxCollections: -1}, want: true},
		{name: "bbox searches", flags: collectionsFlags{bbox: "0,0,1,1", maxCollections: -1}, want: true},
		{name: "datetime searches", flags: collectionsFlags{datetime: "2024", maxCollections: -1}, want: true},
		{name: "cap searches", flags: collectionsFlags{maxCollections: 5}, want: true},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.want, testCase.flags.filtered())
		})
	}
}

func TestBuildCollectionSearchSpec(t *testing.T) {
	t.Parallel()

	spec, err := buildCollectionSearchSpec(collectionsFlags{
		freeText:       "optical",
		bbox:           "-10,-10,10,10",
		datetime:       "2024-06",
		sort:           []string{"-id"},
		limit:          25,
		maxCollections: 50,
	})
	require.NoError(t, err)

	assert.Equal(t, "optical", spec.FreeText)
	assert.Equal(t, []float64{-10, -10, 10, 10}, spec.BBox)
	assert.Equal(t, "2024-06", spec.Datetime)
	assert.Equal(t, 25, spec.Limit)

	require.NotNil(t, spec.MaxCollections)
	assert.Equal(t, 50, *spec.MaxCollections)

	require.Len(t, spec.Sort, 1)
	assert.Equal(t, "id", spec.Sort[0].Field)
	assert.Equal(t, stac.SortDesc, spec.Sort[0].Direction)
}

func TestBuildCollectionSearchSpec_NegativeCapUncaps(t *testing.T) {
	t.Parallel()

	spec, err := buildCollectionSearchSpec(collectionsFlags{maxCollections: -1})
	require.NoError(t, err)
	assert.Nil(t, spec.MaxCollections)
}

func TestBuildCollectionSearchSpec_InvalidBBox(t *testing.T) {
	t.Parallel()

	_, err := buildCollectionSearchSpec(collectionsFlags{bbox: "1,2,3"})
	require.ErrorIs(t, err, constants.ErrInvalidBBox)
}
