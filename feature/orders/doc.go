// Package orders reconciles source orders into destination sales invoices.
//
// Invoices are immutable once created: a mapped order whose content changed only has its
// stored fingerprint refreshed. The natural key is a reference built from a fixed prefix and
// the source order number.
package orders
