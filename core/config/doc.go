// Package config provides configuration management for ledger-sync.
//
// It utilizes Viper for loading configuration from an optional config.yaml, a .env file and
// environment variables. Defaults come from the `default` struct tags of each section.
//
// # Configuration Structure
//
// The Config struct composes the partial configs owned by each package:
//   - Database: mapping store driver and connection
//   - Log: logging level and format
//   - Server: status API port, API key and stats cache TTL
//   - Storage: S3/MinIO run report archival
//   - Redis: distributed run lock
//   - Shopify, Xero: remote credentials, transport policy and account codes
//   - Sync: retry budget, invoice prefix and schedule
//   - Marketing: bulk consent job batching
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
