package storage

// Config configures the S3 compatible bucket run reports are archived in.
type Config struct {
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Endpoint is host:port or a URL. A https URL implies UseSSL.
	Endpoint  string `mapstructure:"endpoint" default:"localhost:9000"`
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	UseSSL    bool   `mapstructure:"use_ssl" default:"false"`
	Bucket    string `mapstructure:"bucket" default:"ledger-sync-reports" validate:"required_if=Enabled true"`
	Region    string `mapstructure:"region" default:""`
	// TimeoutSeconds bounds dialing, the TLS handshake and the first response byte.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30" validate:"gte=0"`
}
