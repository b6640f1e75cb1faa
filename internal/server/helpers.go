package server

import (
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"unicode"

	"socialnet/internal/middleware"
	"socialnet/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// parsePageRequest reads the zero based page and size query parameters.
func parsePageRequest(c *fiber.Ctx, defaultSize int) (models.PageRequest, error) {
	page := c.QueryInt("page", 0)
	size := c.QueryInt("size", defaultSize)
	if page < 0 || size <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("page must be >= 0 and size must be > 0"))
		return models.PageRequest{}, errResponseWritten
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	// Offsets stay within a 32-bit SQL integer.
	if page > math.MaxInt32/size {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("page is out of range"))
		return models.PageRequest{}, errResponseWritten
	}
	return models.PageRequest{Page: page, Size: size}, nil
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parseQueryID reads a required positive id from the query string, with the same
// contract as parseID.
func parseQueryID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Query(name), 10, 32)
	if err != nil || id == 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(name)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "postId" -> "post ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}

// parseBody decodes the JSON body into dest, writing a 400 on failure.
func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// currentUser returns the authenticated identity. Routes using it sit behind
// AuthRequired, so a missing identity is a wiring bug and answers 401.
func currentUser(c *fiber.Ctx) (*middleware.Identity, error) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		_ = models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
		return nil, errResponseWritten
	}
	return id, nil
}

// respondServiceError maps an AppError code onto its HTTP status. Internal errors
// are logged with their cause and rendered without it.
func (s *Server) respondServiceError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err)
	}
	status := models.StatusForCode(appErr.Code)
	if status >= fiber.StatusInternalServerError {
		attrs := []any{slog.String("path", c.Path()), slog.String("code", appErr.Code)}
		if appErr.Err != nil {
			attrs = append(attrs, slog.String("error", appErr.Err.Error()))
		}
		s.logger.ErrorContext(c.UserContext(), "request failed", attrs...)
	}
	return models.RespondWithError(c, status, appErr)
}
