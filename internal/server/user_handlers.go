package server

import (
	"strconv"

	"socialnet/internal/models"
	"socialnet/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateUserRequest is the payload of POST /users.
type CreateUserRequest struct {
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Password    string      `json:"password"`
	Role        models.Role `json:"role"`
	DisplayName string      `json:"displayName"`
	Bio         string      `json:"bio"`
}

// UpdateUserRequest is the payload of PUT /users/:id. Omitted fields are kept.
type UpdateUserRequest struct {
	Email       *string      `json:"email"`
	Password    *string      `json:"password"`
	Role        *models.Role `json:"role"`
	DisplayName *string      `json:"displayName"`
	Bio         *string      `json:"bio"`
}

// UpdateProfileRequest is the payload of PUT /users/me.
type UpdateProfileRequest struct {
	DisplayName      string `json:"displayName"`
	Bio              string `json:"bio"`
	ProfileImagePath string `json:"profileImagePath"`
}

// CreatePostRequest is the payload for creating a post.
type CreatePostRequest struct {
	Text string `json:"text"`
}

// CreateUser handles POST /users
// @Summary Create an account with a role
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "Account"
// @Success 201 {object} models.UserView
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users [post]
func (s *Server) CreateUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	view, err := s.users.Create(c.UserContext(), service.CreateUserInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

// ListUsers handles GET /users
// @Summary List accounts
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Zero based page"
// @Param size query int false "Page size" default(20)
// @Success 200 {array} models.UserView
// @Failure 403 {object} models.ErrorResponse
// @Router /users [get]
func (s *Server) ListUsers(c *fiber.Ctx) error {
	page, err := parsePageRequest(c, defaultPageSize)
	if err != nil {
		return nil
	}
	view, err := s.users.List(c.UserContext(), page)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	c.Set("X-Total-Count", strconv.FormatInt(view.Total, 10))
	return c.JSON(view.Items)
}

// GetMe handles GET /users/me
// @Summary The caller's account
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserView
// @Router /users/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	view, err := s.users.GetByID(c.UserContext(), caller.UserID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(view)
}

// UpdateMe handles PUT /users/me
// @Summary Update the caller's profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Profile"
// @Success 200 {object} models.UserView
// @Failure 400 {object} models.ErrorResponse
// @Router /users/me [put]
func (s *Server) UpdateMe(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	var req UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	view, err := s.users.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:           caller.UserID,
		DisplayName:      req.DisplayName,
		Bio:              req.Bio,
		ProfileImagePath: req.ProfileImagePath,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(view)
}

// GetUser handles GET /users/:id
// @Summary Get an account
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.UserView
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.users.GetByID(c.UserContext(), id)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(view)
}

// UpdateUser handles PUT /users/:id
// @Summary Update an account
// @Description The account owner or an admin may update. Only an admin may change roles.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body UpdateUserRequest true "Changes"
// @Success 200 {object} models.UserView
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [put]
func (s *Server) UpdateUser(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	view, err := s.users.Update(c.UserContext(), id, caller, service.UpdateUserInput{
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(view)
}

// DeleteUser handles DELETE /users/:id
// @Summary Delete an account
// @Tags users
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [delete]
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.users.Delete(c.UserContext(), id, caller); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetUserWithPosts handles GET /users/:id/with-posts
// @Summary An account together with its posts
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.UserWithPostsView
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/with-posts [get]
func (s *Server) GetUserWithPosts(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.users.GetWithPosts(c.UserContext(), id, caller.UserID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(view)
}

// CreatePostForUser handles POST /users/:userId/posts
// @Summary Publish a post as the caller
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID, must be the caller"
// @Param request body CreatePostRequest true "Post"
// @Success 201 {object} models.PostView
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /users/{userId}/posts [post]
func (s *Server) CreatePostForUser(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	userID, err := parseID(c, "userId")
	if err != nil {
		return nil
	}
	if userID != caller.UserID {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("you can only post as yourself"))
	}
	var req CreatePostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	view, err := s.posts.Create(c.UserContext(), service.CreatePostInput{UserID: userID, Text: req.Text})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}
