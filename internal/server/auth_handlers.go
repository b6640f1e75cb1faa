package server

import (
	"time"

	"socialnet/internal/models"
	"socialnet/internal/service"

	"github.com/gofiber/fiber/v2"
)

// LoginRequest is the payload of POST /request-token.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries a signed access token.
type TokenResponse struct {
	Token     string    `json:"token"`
	UserID    uint      `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RegisterRequest is the payload of POST /users/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RequestToken handles POST /request-token
// @Summary Exchange credentials for an access token
// @Description Returns an RS256 signed JWT whose scope claim carries the role.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /request-token [post]
func (s *Server) RequestToken(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.Username == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username and password are required"))
	}

	user, err := s.users.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(TokenResponse{Token: token, UserID: user.ID, ExpiresAt: expiresAt})
}

// Logout handles POST /logout
// @Summary Revoke the current access token
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Router /logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	if err := s.tokens.Revoke(c.UserContext(), caller.TokenID, caller.ExpiresAt); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Register handles POST /users/register
// @Summary Create a USER account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Account"
// @Success 201 {object} models.UserView
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	view, err := s.users.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

// AdminPage handles GET /admin
// @Summary Admin landing message
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Router /admin [get]
func (s *Server) AdminPage(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	return c.JSON(fiber.Map{"message": "Welcome to the admin page, " + caller.Username})
}
