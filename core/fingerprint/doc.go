// Package fingerprint derives content hashes used for change detection.
//
// A fingerprint covers only the fields that end up in the destination representation and
// never the entity's own identifier. Fields are joined with "|" and hashed with SHA-256,
// rendered as lowercase hex. Money is rendered with two decimals so that "10", "10.0" and
// "10.00" hash identically.
package fingerprint
