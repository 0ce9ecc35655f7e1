// Package utils provides loose type conversions for values decoded from
// JSON documents, query strings and configuration.
package utils
