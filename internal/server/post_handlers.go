package server

import (
	"socialnet/internal/service"

	"github.com/gofiber/fiber/v2"
)

// LikeResponse reports the like state after a toggle.
type LikeResponse struct {
	Liked bool `json:"liked"`
}

// GetPosts handles GET /posts
// @Summary The post feed, newest first
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param page query int false "Zero based page"
// @Param size query int false "Page size, at most 5" default(5)
// @Success 200 {object} models.PagedView[models.PostView]
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	page, err := parsePageRequest(c, service.MaxFeedPageSize)
	if err != nil {
		return nil
	}
	view, err := s.posts.List(c.UserContext(), caller.UserID, page)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(view)
}

// GetPost handles GET /posts/:id
// @Summary Get a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.PostView
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.posts.Get(c.UserContext(), id, caller.UserID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(view)
}

// UpdatePost handles PUT /posts/:id
// @Summary Edit a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body CreatePostRequest true "New text"
// @Success 200 {object} models.PostView
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req CreatePostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	view, err := s.posts.Update(c.UserContext(), service.UpdatePostInput{PostID: id, Actor: caller, Text: req.Text})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(view)
}

// DeletePost handles DELETE /posts/:id
// @Summary Delete a post
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.posts.Delete(c.UserContext(), id, caller); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// TogglePostLike handles POST /posts/:id/like
// @Summary Like a post, or remove the like
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} LikeResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/like [post]
func (s *Server) TogglePostLike(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	liked, err := s.posts.ToggleLike(c.UserContext(), id, caller.UserID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(LikeResponse{Liked: liked})
}
