package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger-sync/core/domain"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// ErrRunFinalized is returned when a run record is completed twice.
var ErrRunFinalized = errors.New("run already finalized")

// Store is the GORM backed mapping store.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store on top of an open connection.
func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates or updates the three tables and their indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&mappingRow{}, &runRow{}, &errorRow{}); err != nil {
		return fmt.Errorf("migrate store: %w", classify(err))
	}
	return nil
}

// Ping verifies the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// DB exposes the connection for schema inspection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) clock() time.Time {
	return s.now().UTC()
}

// classify maps driver lock errors onto domain.ErrLockTimeout.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isLockTimeout(err) {
		return fmt.Errorf("%w: %v", domain.ErrLockTimeout, err)
	}
	return err
}

func isLockTimeout(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		// ER_LOCK_WAIT_TIMEOUT
		return myErr.Number == 1205
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// lock_not_available
		return pgErr.Code == "55P03"
	}
	return false
}
