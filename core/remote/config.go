package remote

import "time"

// Config holds the transport policy of one remote service.
type Config struct {
	// Timeout bounds a single attempt.
	Timeout time.Duration `mapstructure:"timeout" default:"30s"`
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `mapstructure:"max_retries" default:"3"`
	// InitialDelay is the backoff before the first retry.
	InitialDelay time.Duration `mapstructure:"initial_delay" default:"1s"`
	// MaxDelay caps the backoff.
	MaxDelay time.Duration `mapstructure:"max_delay" default:"30s"`
	// RateLimitDelay is used when a throttled response carries no Retry-After.
	RateLimitDelay time.Duration `mapstructure:"rate_limit_delay" default:"2s"`
	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" default:"2"`
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RateLimitDelay <= 0 {
		c.RateLimitDelay = 2 * time.Second
	}
	return c
}
