// Package metrics exposes Prometheus counters for scan cycles and reconciliation.
//
// A nil *Metrics is valid and records nothing, so components take it as an optional field.
package metrics
