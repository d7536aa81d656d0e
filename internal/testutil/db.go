// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"

	"chirp/internal/database"
	"chirp/internal/middleware"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	return open(t, "")
}

// NewDBWithForeignKeys is NewDB with SQLite foreign key enforcement turned on,
// matching the constraints PostgreSQL applies.
func NewDBWithForeignKeys(t *testing.T) *gorm.DB {
	t.Helper()
	return open(t, "&_foreign_keys=1")
}

func open(t *testing.T, params string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared%s", uuid.NewString(), params)
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig(database.NewGormLogger(middleware.Logger, logger.Silent)))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the in-memory database alive and serialises writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}
