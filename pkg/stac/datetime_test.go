package stac_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacq-io/stacq/pkg/stac"
)

func TestFormatDatetime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "year expands to full year", input: "2017", want: "2017-01-01T00:00:00Z/2017-12-31T23:59:59Z"},
		{name: "month expands to full month", input: "2017-06", want: "2017-06-01T00:00:00Z/2017-06-30T23:59:59Z"},
		{name: "leap february", input: "2024-02", want: "2024-02-01T00:00:00Z/2024-02-29T23:59:59Z"},
		{name: "day expands to full day", input: "2017-06-10", want: "2017-06-10T00:00:00Z/2017-06-10T23:59:59Z"},
		{name: "timestamp passes through", input: "2017-06-10T05:30:00Z", want: "2017-06-10T05:30:00Z"},
		{name: "timestamp without tz assumes utc", input: "2017-06-10T05:30:00", want: "2017-06-10T05:30:00Z"},
		{name: "timestamp with offset", input: "2017-06-10T05:30:00+02:00", want: "2017-06-10T05:30:00+02:00"},
		{name: "year range", input: "2017/2018", want: "2017-01-01T00:00:00Z/2018-12-31T23:59:59Z"},
		{name: "truncated end expands to period end", input: "2017-01-01T00:00:00Z/2017-06", want: "2017-01-01T00:00:00Z/2017-06-30T23:59:59Z"},
		{name: "open end", input: "2017-06-10/..", want: "2017-06-10T00:00:00Z/.."},
		{name: "open start", input: "../2017", want: "../2017-12-31T23:59:59Z"},
		{name: "empty component is open", input: "/2017", want: "../2017-12-31T23:59:59Z"},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got, err := stac.FormatDatetime(testCase.input)
			require.NoError(t, err)
			assert.Equal(t, testCase.want, got)
		})
	}
}

func TestFormatDatetime_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "double open", input: "../.."},
		{name: "open single component", input: ".."},
		{name: "too many components", input: "2017/2018/2019"},
		{name: "garbage", input: "yesterday"},
		{name: "bad month digits", input: "2017-6"},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, err := stac.FormatDatetime(testCase.input)
			require.ErrorIs(t, err, stac.ErrInvalidDatetime)
		})
	}
}

func TestFormatTime(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("CET", 3600)
	ts := time.Date(2024, 6, 1, 13, 30, 0, 0, loc)
	assert.Equal(t, "2024-06-01T12:30:00Z", stac.FormatTime(ts))
}
