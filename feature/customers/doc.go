// Package customers reconciles source customers into destination contacts.
//
// A mapped customer is updated only when its fingerprint changed. An unmapped customer is
// first looked up by email; an active contact with that email is linked and refreshed with
// the source data, anything else results in a new contact. Customers without an email skip
// the lookup and are always created on first sight. Two source customers sharing an email
// therefore map to the same destination contact.
package customers
