// Package stac provides types, interfaces, and helpers for searching
// STAC (SpatioTemporal Asset Catalog) APIs.
//
// # Overview
//
// The stac package defines the domain types (Item, ItemCollection,
// Collection, Catalog, Link) and the building blocks of a search
// session: conformance negotiation, filter and sort normalization,
// request construction, and lazy resumable pagination. A concrete
// client implementation is provided by the stacclient package, which
// wires configuration, transport, caching, and link discovery. Most
// consumers should import stacclient to construct a client and then
// drive the search surface exposed here.
//
// Getting a client
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
//	  cli, err := stacclient.New(&stac.Config{Endpoint: "https://earth-search.aws.element84.com/v1"})
//	  if err != nil { log.Fatal(err) }
//
//	  maxItems := 100
//	  search, err := cli.Search(ctx, &stac.SearchSpec{
//	    Collections: []string{"sentinel-2-l2a"},
//	    BBox:        []float64{-72.5, 40.5, -72, 41},
//	    Datetime:    "2024-06",
//	    MaxItems:    &maxItems,
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  items := search.Items(ctx)
//	  for items.HasNext() {
//	    item, err := items.Next()
//	    if err != nil { break }
//	    _ = item
//	  }
//	}
//
// # Searches and pagination
//
// A Search is built once from a SearchSpec and is immutable afterwards:
// iterating it twice replays the same request sequence. Pages, Items and
// Collect all fetch lazily, following the server's next links, and stop
// at the MaxItems cap when one is set.
//
// # Capabilities
//
// The client reads the catalog's conformance declaration into a
// ConformanceSet. Searches check the features they use against it and
// report gaps through the configured DiagnosticSink rather than failing:
// the request is still attempted, since real-world declarations are
// often incomplete.
//
// # Errors
//
// Server errors are represented by APIError; helpers such as IsNotFound
// and IsRetryExhausted make it easy to branch on common cases. Parse and
// validation failures wrap static sentinel errors (ErrInvalidFilterSyntax,
// ErrInvalidDatetime, ...) for errors.Is checks.
//
// # Interceptors and caching
//
// The package includes generic building blocks such as request/response
// interceptors (for logging, auth headers, metrics) and a pluggable
// Cache abstraction with memory and NATS KV backends for catalog
// metadata. The stacclient package composes these pieces for a sensible
// default client; applications with advanced needs can use the
// primitives directly.
package stac
