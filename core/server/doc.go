// Package server holds the HTTP server configuration.
//
// While the serve command handles the server startup, this package defines the
// listen address, the API key and the catalog cache lifetime.
//
// # Usage
//
// This package is embedded by core/config and read by the serve command and the
// catalog feature.
package server
