// Package catalog serves the reconciled records over HTTP.
//
// Records are read from the document store only; the API never writes.
// Schema listings are cached per schema for server.cache_ttl and rebuilt
// behind a singleflight group so concurrent requests share one store read.
//
// # HTTP Endpoints
//
//   - GET /catalog : Lists registered schema names.
//   - GET /catalog/:schema : Lists every record of a schema (supports ?limit=N and ?fresh=true).
//   - GET /catalog/:schema/:id : Returns one record.
//   - GET /metrics : Prometheus metrics.
package catalog
