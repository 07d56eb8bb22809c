// Package metrics defines the Prometheus collectors of the sync engine.
//
// Collectors are registered on the default registry at init time and exposed by the
// status server on /metrics.
package metrics
