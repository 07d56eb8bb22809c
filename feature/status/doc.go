// Package status exposes the mapping store over HTTP for operators.
//
// Routes:
//
//	GET    /health              store ping
//	GET    /stats               cached sync statistics
//	GET    /runs?limit=         recent run history
//	GET    /errors?type=        pending retryable errors
//	GET    /mappings/:sourceId  one mapping
//	DELETE /mappings/:sourceId  forget a mapping so the next run relinks or recreates it
//	GET    /metrics             Prometheus exposition
package status
