package server

import (
	"socialnet/internal/models"
	"socialnet/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateCommentRequest is the payload of POST /comments.
type CreateCommentRequest struct {
	PostID          uint   `json:"postId"`
	Content         string `json:"content"`
	ParentCommentID *uint  `json:"parentCommentId"`
}

// UpdateCommentRequest is the payload of PUT /comments/:id.
type UpdateCommentRequest struct {
	Content string `json:"content"`
}

// CreateComment handles POST /comments
// @Summary Comment on a post or reply to a comment
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateCommentRequest true "Comment"
// @Success 201 {object} models.CommentView
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	var req CreateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.PostID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("postId is required"))
	}
	view, err := s.comments.Create(c.UserContext(), service.CreateCommentInput{
		UserID:          caller.UserID,
		PostID:          req.PostID,
		Content:         req.Content,
		ParentCommentID: req.ParentCommentID,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

// GetPostComments handles GET /comments/post/:postId
// @Summary Top level comments of a post, oldest first
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Param page query int false "Zero based page"
// @Param size query int false "Page size" default(20)
// @Success 200 {object} models.PagedView[models.CommentView]
// @Router /comments/post/{postId} [get]
func (s *Server) GetPostComments(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}
	page, err := parsePageRequest(c, defaultPageSize)
	if err != nil {
		return nil
	}
	view, err := s.comments.ListTopLevel(c.UserContext(), postID, caller.UserID, page)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(view)
}

// GetCommentReplies handles GET /comments/:id/replies
// @Summary Direct replies to a comment
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 200 {array} models.CommentView
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id}/replies [get]
func (s *Server) GetCommentReplies(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	views, err := s.comments.ListReplies(c.UserContext(), id, caller.UserID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(views)
}

// UpdateComment handles PUT /comments/:id
// @Summary Edit your comment
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Param request body UpdateCommentRequest true "New content"
// @Success 200 {object} models.CommentView
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [put]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req UpdateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	view, err := s.comments.Update(c.UserContext(), service.UpdateCommentInput{
		UserID:    caller.UserID,
		CommentID: id,
		Content:   req.Content,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(view)
}

// DeleteComment handles DELETE /comments/:id
// @Summary Delete your comment and its replies
// @Tags comments
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.comments.Delete(c.UserContext(), id, caller.UserID); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleCommentLike handles POST /comments/:id/like
// @Summary Like a comment, or remove the like
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 200 {object} LikeResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id}/like [post]
func (s *Server) ToggleCommentLike(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	liked, err := s.comments.ToggleLike(c.UserContext(), id, caller.UserID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(LikeResponse{Liked: liked})
}
