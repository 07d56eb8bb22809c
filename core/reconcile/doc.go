// Package reconcile is the idempotent sync engine.
//
// Each entity type is reconciled by a Handler that decides, for every fetched source entity,
// whether to create, update or skip its destination record. The engine provides the shared
// building blocks:
//
//   - Engine.Mapping and Engine.Commit read and write the mapping store; Commit also clears the
//     entity's pending failure.
//   - Engine.FindActive performs the duplicate-avoidance lookup by natural key before a create.
//   - Engine.Link maps an entity to an existing destination record and pushes the source content.
//
// # Phases
//
// NewPhase turns a typed Handler into a Phase. Phase.Run iterates the lazy source sequence
// one entity at a time, catches per-entity failures at the entity boundary, records them in
// the retry queue and carries on. A failing fetch marks the phase failed without stopping it
// from returning its partial result. Authentication failures and store lock timeouts are
// returned as errors and abort the run.
//
// # Dry Run
//
// With Options.DryRun the handlers still read from both systems but every Commit and Link is a
// no-op and failures are not queued, so repeated dry runs report the same actions.
//
// # Usage
//
//	engine := reconcile.NewEngine(store, logger, reconcile.Options{DryRun: true})
//	phase := reconcile.NewPhase[*domain.Customer](customers.NewHandler(source, dest))
//	result, err := phase.Run(ctx, engine, since)
package reconcile
