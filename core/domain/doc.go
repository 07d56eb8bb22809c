// Package domain defines the normalized shapes shared by the sync engine and its adapters.
//
// Adapters convert remote payloads into these types before the core sees them, so the
// reconciliation code never deals with transport quirks such as tags encoded as a
// comma-delimited string in one API and as a list in another.
//
// # Contents
//
//   - Entities: Customer, Product, Order and their nested Address, Variant and LineItem.
//   - Bookkeeping: Mapping, RunRecord, RetryableError and Stats, persisted by core/store.
//   - Destination records: Record and InvoiceDraft.
//   - Adapter contracts: Source, ConsentUpdater, ConcurrentWriter and the destination interfaces.
//   - Error taxonomy: sentinel errors plus RemoteCallError and ValidationError.
package domain
