// Package database opens the relational database behind the mapping store.
//
// It wraps GORM and supports three drivers: sqlite (the default, a single local file),
// MySQL and Postgres for deployments where several processes share one store. Every DSN
// carries a lock wait bound (30 seconds unless configured) so that contention surfaces as
// an error instead of blocking forever.
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns read the live schema so that the check command can
// confirm the mappings, run_history and errors tables match what the store expects.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	missing, err := database.MissingColumns(db, "mappings", []string{"source_id", "fingerprint"})
package database
