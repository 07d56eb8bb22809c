package runner

// Config holds the sync run settings.
type Config struct {
	// MaxRetries is the retry budget of a failed entity.
	MaxRetries int `mapstructure:"max_retries" default:"3" validate:"min=1"`
	// InvoicePrefix is prepended to the order number to build the invoice reference.
	InvoicePrefix string `mapstructure:"invoice_prefix" default:"SHOP-" validate:"required"`
	// Schedule is the cron expression of scheduled runs in serve mode. Empty disables them.
	Schedule string `mapstructure:"schedule" default:""`
	// DryRun makes every run a dry run unless overridden on the command line.
	DryRun bool `mapstructure:"dry_run" default:"false"`
}
