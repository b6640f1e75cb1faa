// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"socialnet/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}

// lookupError maps a single-row lookup failure onto the application error codes.
func lookupError(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}

func paginate(db *gorm.DB, page models.PageRequest) *gorm.DB {
	if page.Size <= 0 {
		return db
	}
	return db.Offset(page.Offset()).Limit(page.Size)
}
