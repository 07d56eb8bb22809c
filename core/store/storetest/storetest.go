// Package storetest opens throwaway mapping stores for tests.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"ledger-sync/core/database"
	"ledger-sync/core/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// New returns a migrated store backed by a private in-memory sqlite database.
func New(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	path := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(uuid.NewString(), "-", ""))
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Path: path})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := store.New(db, opts...)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}
