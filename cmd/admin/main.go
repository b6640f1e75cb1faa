// Command admin grants and revokes the ADMIN role from the command line.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"socialnet/internal/config"
	"socialnet/internal/database"
	"socialnet/internal/middleware"
	"socialnet/internal/models"

	"gorm.io/gorm"
)

const usageText = `Usage:
  admin promote <user_id>   Grant the ADMIN role
  admin demote <user_id>    Revert a user to USER
  admin list                List all admins`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usageText)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := middleware.NewLogger(cfg.Env, os.Stderr)

	db, err := database.Connect(cfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	switch cmd := os.Args[1]; cmd {
	case "promote", "demote":
		if len(os.Args) < 3 {
			fmt.Println(usageText)
			os.Exit(2)
		}
		role := models.RoleAdmin
		if cmd == "demote" {
			role = models.RoleUser
		}
		if err := setRole(db, os.Args[2], role); err != nil {
			logger.Error("role change failed", slog.String("user_id", os.Args[2]), slog.String("error", err.Error()))
			os.Exit(1)
		}
	case "list":
		if err := listAdmins(db); err != nil {
			logger.Error("failed to list admins", slog.String("error", err.Error()))
			os.Exit(1)
		}
	default:
		fmt.Printf("Unknown command: %s\n\n%s\n", cmd, usageText)
		os.Exit(2)
	}
}

func setRole(db *gorm.DB, rawID string, role models.Role) error {
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid user id %q", rawID)
	}

	var user models.User
	if err := db.First(&user, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %d not found", id)
		}
		return err
	}
	if user.Role == role {
		fmt.Printf("%s (ID: %d) already has role %s\n", user.Username, user.ID, role)
		return nil
	}
	if err := db.Model(&user).Update("role", role).Error; err != nil {
		return err
	}
	fmt.Printf("%s (ID: %d) now has role %s\n", user.Username, user.ID, role)
	return nil
}

func listAdmins(db *gorm.DB) error {
	var admins []models.User
	if err := db.Where("role = ?", models.RoleAdmin).Order("id").Find(&admins).Error; err != nil {
		return err
	}
	if len(admins) == 0 {
		fmt.Println("No admins found")
		return nil
	}
	for _, admin := range admins {
		fmt.Printf("ID: %d | Username: %s | Email: %s\n", admin.ID, admin.Username, admin.Email)
	}
	return nil
}
