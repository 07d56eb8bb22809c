// Package xero is the destination adapter for the Xero accounting API.
//
// Contacts, inventory items and sales invoices are exposed as domain.Record values so the
// reconcilers never see Xero payload shapes. Payload mapping uses the account codes and tax
// types configured in Config.
package xero
