// Package store is the durable mapping store of the sync engine.
//
// It persists three tables through GORM:
//
//   - mappings: one row per source entity, linking it to its destination record together with
//     the fingerprint of the content last pushed. Several source ids may share one destination id.
//   - run_history: one row per run, finalized exactly once.
//   - errors: at most one active failure per (entity_type, source_id), with a retry counter.
//
// Every mutating method is its own transaction; callers never see multi-statement
// transactions. Lock waits are bounded by the connection settings of core/database and a
// wait past the bound is reported as domain.ErrLockTimeout, which callers must not retry.
package store
