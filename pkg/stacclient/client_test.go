package stacclient_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacq-io/stacq/pkg/stac"
	"github.com/stacq-io/stacq/pkg/stacclient"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := stacclient.New(nil)
	require.ErrorIs(t, err, stac.ErrConfigRequired)

	_, err = stacclient.New(&stac.Config{})
	require.ErrorIs(t, err, stac.ErrEndpointRequired)
}

func TestNew_NormalizesEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		endpoint string
		want     string
	}{
		{name: "trailing slash trimmed", endpoint: "https://earth-search.aws.element84.com/v1/", want: "https://earth-search.aws.element84.com/v1"},
		{name: "scheme defaults to https", endpoint: "earth-search.aws.element84.com/v1", want: "https://earth-search.aws.element84.com/v1"},
		{name: "explicit http kept", endpoint: "http://localhost:8080", want: "http://localhost:8080"},
		{name: "already normalized", endpoint: "https://planetarycomputer.microsoft.com/api/stac/v1", want: "https://planetarycomputer.microsoft.com/api/stac/v1"},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			client, err := stacclient.New(&stac.Config{Endpoint: testCase.endpoint})
			require.NoError(t, err)
			assert.Equal(t, testCase.want, client.Endpoint())
		})
	}
}

func TestNew_DoesNotMutateConfig(t *testing.T) {
	t.Parallel()

	config := &stac.Config{Endpoint: "example.com/stac/"}

	_, err := stacclient.New(config)
	require.NoError(t, err)
	assert.Equal(t, "example.com/stac/", config.Endpoint)
}

func TestNewWithEndpoint(t *testing.T) {
	t.Parallel()

	client, err := stacclient.NewWithEndpoint("https://example.com/stac")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/stac", client.Endpoint())
}

func TestNewWithToken(t *testing.T) {
	t.Parallel()

	client, err := stacclient.NewWithToken("https://example.com/stac", "token-123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/stac", client.Endpoint())
}
