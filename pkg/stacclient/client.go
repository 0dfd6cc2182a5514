// Package stacclient provides the main entry point for creating STAC API clients
package stacclient

import (
	"strings"

	"github.com/stacq-io/stacq/internal/client"
	"github.com/stacq-io/stacq/pkg/stac"
)

// New creates a STAC API client for the configured catalog endpoint. The
// endpoint is normalized (trailing slash trimmed, https assumed when no
// scheme is given); the catalog itself is not contacted until the first
// operation that needs it.
func New(config *stac.Config) (stac.Client, error) {
	if config == nil {
		return nil, stac.ErrConfigRequired
	}

	if config.Endpoint == "" {
		return nil, stac.ErrEndpointRequired
	}

	// Normalize the endpoint
	endpoint := strings.TrimSuffix(config.Endpoint, "/")
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	normalized := *config
	normalized.Endpoint = endpoint

	return client.New(&normalized)
}

// NewWithEndpoint creates a client with just a catalog endpoint.
func NewWithEndpoint(endpoint string) (stac.Client, error) {
	return New(&stac.Config{Endpoint: endpoint})
}

// NewWithToken creates a client that sends the given bearer token on
// every request.
func NewWithToken(endpoint, token string) (stac.Client, error) {
	return New(&stac.Config{Endpoint: endpoint, AccessToken: token})
}
