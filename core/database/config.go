package database

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config holds configuration for the mapping store database.
type Config struct {
	// Driver is the database driver (sqlite, mysql, postgres).
	Driver string `mapstructure:"driver" default:"sqlite" validate:"oneof=sqlite mysql postgres"`
	// Path is the sqlite database file. ":memory:" and "file:" URIs are accepted.
	Path string `mapstructure:"path" default:"data/sync.db"`
	// Host is the database host.
	Host string `mapstructure:"host" default:"localhost"`
	// Port is the database port.
	Port int `mapstructure:"port" default:"3306"`
	// User is the database user.
	User string `mapstructure:"user" default:"root"`
	// Password is the database password.
	Password string `mapstructure:"password" default:""`
	// Name is the database name.
	Name string `mapstructure:"name" default:"ledger_sync"`
	// SSLMode is passed to postgres as sslmode.
	SSLMode string `mapstructure:"ssl_mode" default:"disable"`
	// TimeoutSeconds bounds connection setup and I/O.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// LockTimeoutSeconds bounds how long a statement waits on a lock before failing.
	LockTimeoutSeconds int `mapstructure:"lock_timeout_seconds" default:"30"`
}

// DefaultSQLitePath is used when Path is empty.
const DefaultSQLitePath = "data/sync.db"

func (c Config) sqlitePath() string {
	if c.Path == "" {
		return DefaultSQLitePath
	}
	return c.Path
}

func (c Config) timeout() int {
	if c.TimeoutSeconds <= 0 {
		return 30
	}
	return c.TimeoutSeconds
}

func (c Config) lockTimeout() int {
	if c.LockTimeoutSeconds <= 0 {
		return 30
	}
	return c.LockTimeoutSeconds
}
