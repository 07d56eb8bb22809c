// Package runner is the run controller of the sync.
//
// A run reconciles customers, then products, then orders, because order invoices reference
// the contacts and items the earlier phases map. Each run is persisted in the run history
// before the first phase starts and finalized exactly once, including when a phase panics or
// a run-fatal error (authentication, store lock timeout) aborts it. Incremental runs fetch
// only what changed since the last successful non dry run; forced runs fetch everything.
//
// Retry replays the entities of the error queue whose retry counter is still below the
// configured maximum. Both modes hold the run lock while they mutate the mapping store.
package runner
