package middleware

import (
	"context"
	"strings"
	"time"

	"socialnet/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Identity is the authenticated principal extracted from a bearer token.
type Identity struct {
	UserID    uint
	Username  string
	Role      models.Role
	TokenID   string
	ExpiresAt time.Time
}

// TokenVerifier validates a raw bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Locals keys set by AuthRequired.
const (
	LocalUserID   = "userID"
	LocalRole     = "role"
	LocalIdentity = "identity"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthRequired enforces a valid bearer token and stores the caller in locals.
func AuthRequired(v TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization header required"))
		}
		token, ok := BearerToken(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid authorization header format"))
		}

		id, err := v.Verify(c.UserContext(), token)
		if err != nil || id == nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		c.Locals(LocalUserID, id.UserID)
		c.Locals(LocalRole, id.Role)
		c.Locals(LocalIdentity, id)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, id.UserID))

		return c.Next()
	}
}

// RequireRole rejects callers whose role differs from role. It must run after AuthRequired.
func RequireRole(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		current, _ := c.Locals(LocalRole).(models.Role)
		if current != role {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Insufficient permissions"))
		}
		return c.Next()
	}
}

// CurrentIdentity returns the principal stored by AuthRequired.
func CurrentIdentity(c *fiber.Ctx) (*Identity, bool) {
	id, ok := c.Locals(LocalIdentity).(*Identity)
	return id, ok && id != nil
}
