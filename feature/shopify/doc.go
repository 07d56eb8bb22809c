// Package shopify is the source adapter for a Shopify store.
//
// Two transports sit behind the same Client interface. The REST client pages lazily through
// the Admin REST API with since_id cursors and yields entities as pages arrive. The GraphQL
// client collects every page of a connection before yielding, and reports that the store
// accepts parallel writes so the bulk consent job can batch its updates.
//
// Both normalize the Shopify payloads into the core/domain entity shapes: numeric string
// ids, tag lists and decimal money amounts.
package shopify
