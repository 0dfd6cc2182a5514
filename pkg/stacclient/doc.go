// Package stacclient provides the primary entry point for constructing
// a STAC API client that implements the stac.Client interface.
//
// It layers configuration, HTTP transport, metadata caching, and landing
// page discovery on top of the search surface and types defined in the
// stac package. Most applications should import stacclient to build a
// client, then use the returned stac.Client to discover collections and
// run searches.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/stacq-io/stacq/pkg/stac"
//	  "github.com/stacq-io/stacq/pkg/stacclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // Minimal: just a catalog endpoint.
//	  cli, err := stacclient.NewWithEndpoint("https://earth-search.aws.element84.com/v1")
//	  if err != nil { log.Fatal(err) }
//
//	  // Or with full configuration:
//	  cli, err = stacclient.New(&stac.Config{
//	    Endpoint:         "https://planetarycomputer.microsoft.com/api/stac/v1",
//	    Headers:          map[string]string{"X-Api-Key": "..."},
//	    RetryMax:         3,
//	    RetryStatusCodes: []int{502, 503},
//	    Cache:            stac.DefaultCacheConfig(),
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  collections, err := cli.Collections(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = collections
//	}
//
// # Capability overrides
//
// Some servers under-report their conformance. Config.ConformsTo
// replaces discovery with an explicit capability list:
//
//	cli, err := stacclient.New(&stac.Config{
//	  Endpoint:   "https://legacy.example.com",
//	  ConformsTo: []stac.ConformanceClass{stac.ConformanceItemSearch, stac.ConformanceSort},
//	})
package stacclient
