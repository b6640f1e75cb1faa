// Package bootstrap wires the process-wide runtime: database, schema, Redis,
// the development root admin and optional demo data.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"socialnet/internal/cache"
	"socialnet/internal/config"
	"socialnet/internal/database"
	"socialnet/internal/middleware"
	"socialnet/internal/models"
	"socialnet/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	defaultRootUsername = "root_admin"
	defaultRootEmail    = "root@socialnet.local"
	startupTimeout      = 2 * time.Minute
)

// Options control runtime initialization behavior.
type Options struct {
	Logger       *slog.Logger
	SeedDemoData bool
}

// InitRuntime connects to the database and Redis, applies the schema, and
// seeds when asked. The Redis client is nil when Redis is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	logger := middleware.OrDefault(opts.Logger)
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	db, err := database.Connect(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return nil, nil, fmt.Errorf("apply schema: %w", err)
	}

	rdb := cache.Connect(ctx, cfg.RedisURL, logger)

	if err := ensureDevRootAdmin(ctx, cfg, db, logger); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if opts.SeedDemoData {
		if _, err := seed.NewSeeder(db, seed.DefaultOptions(), logger).SeedIfEmpty(ctx); err != nil {
			return nil, nil, fmt.Errorf("seed demo data: %w", err)
		}
	}

	return db, rdb, nil
}

// ensureDevRootAdmin creates or promotes an ADMIN account in development when
// DEV_ROOT_PASSWORD is set. It is a no-op in every other environment.
func ensureDevRootAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *slog.Logger) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || cfg.DevRootPassword == "" {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = defaultRootUsername
	}
	email := strings.ToLower(strings.TrimSpace(cfg.DevRootEmail))
	if email == "" {
		email = defaultRootEmail
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.DevRootPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.Where("username = ?", username).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				Username:    username,
				Email:       email,
				Password:    string(hashed),
				Role:        models.RoleAdmin,
				DisplayName: username,
			}
			return tx.Create(&root).Error
		case findErr != nil:
			return findErr
		default:
			return tx.Model(&root).Updates(map[string]any{
				"role":     models.RoleAdmin,
				"password": string(hashed),
			}).Error
		}
	})
	if err != nil {
		return err
	}

	logger.Info("development root admin ensured", slog.String("username", username))
	return nil
}
