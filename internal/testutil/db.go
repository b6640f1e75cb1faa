// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"socialnet/internal/database"
	"socialnet/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory SQLite database with the full schema.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the in-memory database alive and serializes transactions.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// CreateUser inserts a USER named name with email name@example.com.
// The stored password is not a valid bcrypt hash.
func CreateUser(t testing.TB, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{
		Username:    name,
		Email:       fmt.Sprintf("%s@example.com", name),
		Password:    "hash",
		Role:        models.RoleUser,
		DisplayName: name,
	}
	require.NoError(t, db.WithContext(context.Background()).Create(u).Error)
	return u
}
