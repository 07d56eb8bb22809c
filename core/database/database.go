package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the configured database and verifies it with a ping.
func Connect(cfg Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// sqlite allows one writer; a single connection also keeps ":memory:" databases coherent
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.timeout())*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Dialector builds the gorm dialector for the configured driver.
func Dialector(cfg Config) (gorm.Dialector, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case DriverSQLite, "":
		if err := ensureDir(cfg.sqlitePath()); err != nil {
			return nil, err
		}
		return sqlite.Open(dsn), nil
	case DriverMySQL:
		return mysql.Open(dsn), nil
	case DriverPostgres:
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// DSN renders the connection string, including the lock wait bound for each driver.
func DSN(cfg Config) (string, error) {
	timeout := cfg.timeout()
	lockTimeout := cfg.lockTimeout()

	switch cfg.Driver {
	case DriverSQLite, "":
		path := cfg.sqlitePath()
		// immediate transactions take the write lock up front, so they wait in busy_timeout
		// instead of failing on a read to write upgrade
		params := fmt.Sprintf("_busy_timeout=%d&_foreign_keys=on&_txlock=immediate", lockTimeout*1000)
		if !isMemory(path) {
			params += "&_journal_mode=WAL"
		}
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + params, nil

	case DriverMySQL:
		mc := mysqldriver.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		mc.DBName = cfg.Name
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.Timeout = time.Duration(timeout) * time.Second
		mc.ReadTimeout = mc.Timeout
		mc.WriteTimeout = mc.Timeout
		mc.Params = map[string]string{
			"charset":                  "utf8mb4",
			"innodb_lock_wait_timeout": fmt.Sprint(lockTimeout),
		}
		return mc.FormatDSN(), nil

	case DriverPostgres:
		parts := []string{
			"host=" + cfg.Host,
			fmt.Sprintf("port=%d", cfg.Port),
			"user=" + cfg.User,
		}
		if cfg.Password != "" {
			parts = append(parts, "password="+cfg.Password)
		}
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		parts = append(parts,
			"dbname="+cfg.Name,
			"sslmode="+sslMode,
			fmt.Sprintf("connect_timeout=%d", timeout),
			fmt.Sprintf("lock_timeout=%d", lockTimeout*1000),
			"TimeZone=UTC",
		)
		return strings.Join(parts, " "), nil

	default:
		return "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

func ensureDir(path string) error {
	if isMemory(path) || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}
