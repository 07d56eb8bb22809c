// Package marketing implements the bulk email marketing consent job.
//
// The job sets the consent flag of every source customer that does not have it yet. It is a
// best-effort bulk update outside the reconciliation path: nothing is mapped and a failed
// customer never stops the others. Sources that allow parallel writes are updated in bounded
// batches with a pause between batches; the others are updated one by one, paced by a rate
// limiter.
package marketing
