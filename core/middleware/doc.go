// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - Auth: API key validation for the catalog routes. Path prefixes such as
//     /metrics can be left open.
//   - RayID: Tags every request with a unique id, stored in the context locals and
//     echoed in the X-Ray-ID response header for tracing.
//
// RayID is registered first so that every later log line can carry the id.
package middleware
