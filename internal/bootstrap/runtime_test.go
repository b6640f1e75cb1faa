package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"socialnet/internal/config"
	"socialnet/internal/models"
	"socialnet/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnsureDevRootAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates admin in development", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		cfg := &config.Config{Env: "development", DevRootUsername: "rooty", DevRootPassword: "rootpass1"}
		require.NoError(t, ensureDevRootAdmin(ctx, cfg, db, discardLogger()))

		var root models.User
		require.NoError(t, db.Where("username = ?", "rooty").First(&root).Error)
		assert.Equal(t, models.RoleAdmin, root.Role)
		assert.Equal(t, defaultRootEmail, root.Email)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(root.Password), []byte("rootpass1")))
	})

	t.Run("promotes existing user", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		existing := testutil.CreateUser(t, db, "rooty")
		cfg := &config.Config{Env: "development", DevRootUsername: "rooty", DevRootPassword: "rootpass1"}
		require.NoError(t, ensureDevRootAdmin(ctx, cfg, db, discardLogger()))

		var root models.User
		require.NoError(t, db.First(&root, existing.ID).Error)
		assert.Equal(t, models.RoleAdmin, root.Role)

		var count int64
		require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("skipped outside development", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		for _, cfg := range []*config.Config{
			{Env: "production", DevRootPassword: "rootpass1"},
			{Env: "development"},
		} {
			require.NoError(t, ensureDevRootAdmin(ctx, cfg, db, discardLogger()))
		}
		var count int64
		require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestInitRuntime_SQLiteWithoutRedis(t *testing.T) {
	cfg := &config.Config{
		Env:          "test",
		DBDriver:     "sqlite",
		SQLitePath:   filepath.Join(t.TempDir(), "runtime.db"),
		DBSchemaMode: "auto",
		RedisURL:     "127.0.0.1:1",
	}
	db, rdb, err := InitRuntime(cfg, Options{SeedDemoData: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	assert.Nil(t, rdb)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Positive(t, users)
}
