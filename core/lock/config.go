package lock

import "time"

// Config holds the Redis connection used for the run lock.
type Config struct {
	// Enabled turns the distributed run lock on.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Address is the host:port of the Redis server.
	Address  string `mapstructure:"address" default:"localhost:6379"`
	Password string `mapstructure:"password" default:""`
	DB       int    `mapstructure:"db" default:"0"`
	// Key is the lock key.
	Key string `mapstructure:"key" default:"ledger-sync:run"`
	// TTL bounds how long a crashed run can hold the lock.
	TTL time.Duration `mapstructure:"ttl" default:"30m"`
}
