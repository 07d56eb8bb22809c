package server

import "time"

// Config holds configuration for the status HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080" validate:"required,numeric"`
	// ApiKey is the secret key required to access the API. Empty disables authentication.
	ApiKey string `mapstructure:"api_key" default:""`
	// StatsCacheTTL is how long /stats answers are served from cache.
	StatsCacheTTL time.Duration `mapstructure:"stats_cache_ttl" default:"10s"`
	// ShutdownTimeout bounds the graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" default:"10s"`
}

// Address returns the listen address.
func (c Config) Address() string {
	return ":" + c.Port
}
