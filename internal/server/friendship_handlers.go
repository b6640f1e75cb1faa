package server

import (
	"context"

	"socialnet/internal/models"
	"socialnet/internal/service"

	"github.com/gofiber/fiber/v2"
)

// FriendRequestBody is the payload of POST /friendships.
type FriendRequestBody struct {
	RequesterID uint `json:"requesterId"`
	ReceiverID  uint `json:"receiverId"`
}

// SendFriendRequest handles POST /friendships
// @Summary Send a friend request
// @Tags friendships
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body FriendRequestBody true "Requester and receiver"
// @Success 201 {object} models.FriendshipView
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /friendships [post]
func (s *Server) SendFriendRequest(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	var req FriendRequestBody
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.RequesterID == 0 || req.ReceiverID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("requesterId and receiverId are required"))
	}
	if req.RequesterID != caller.UserID {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("you can only send friend requests as yourself"))
	}

	view, err := s.friendships.SendFriendRequest(c.UserContext(), req.RequesterID, req.ReceiverID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

// AcceptFriendRequest handles PUT /friendships/:id/accept
// @Summary Accept a pending friend request
// @Tags friendships
// @Produce json
// @Security BearerAuth
// @Param id path int true "Friendship ID"
// @Param userId query int false "Acting user, defaults to the caller"
// @Success 200 {object} models.FriendshipView
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /friendships/{id}/accept [put]
func (s *Server) AcceptFriendRequest(c *fiber.Ctx) error {
	return s.respondToFriendRequest(c, s.friendships.AcceptFriendRequest)
}

// RejectFriendRequest handles PUT /friendships/:id/reject
// @Summary Reject a pending friend request
// @Tags friendships
// @Produce json
// @Security BearerAuth
// @Param id path int true "Friendship ID"
// @Param userId query int false "Acting user, defaults to the caller"
// @Success 200 {object} models.FriendshipView
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /friendships/{id}/reject [put]
func (s *Server) RejectFriendRequest(c *fiber.Ctx) error {
	return s.respondToFriendRequest(c, s.friendships.RejectFriendRequest)
}

type friendRequestTransition = func(ctx context.Context, friendshipID, actingUserID uint) (models.FriendshipView, error)

func (s *Server) respondToFriendRequest(c *fiber.Ctx, transition friendRequestTransition) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	actingUserID := caller.UserID
	if c.Query("userId") != "" {
		if actingUserID, err = parseQueryID(c, "userId"); err != nil {
			return nil
		}
		if actingUserID != caller.UserID {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("you can only respond to friend requests as yourself"))
		}
	}

	view, err := transition(c.UserContext(), id, actingUserID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(view)
}

// GetFriendshipStatus handles GET /friendships/status?userId=
// @Summary Relationship between the caller and another user
// @Tags friendships
// @Produce json
// @Security BearerAuth
// @Param userId query int true "Other user"
// @Success 200 {object} models.StatusView
// @Failure 400 {object} models.ErrorResponse
// @Router /friendships/status [get]
func (s *Server) GetFriendshipStatus(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	other, err := parseQueryID(c, "userId")
	if err != nil {
		return nil
	}
	view, err := s.friendships.GetStatus(c.UserContext(), caller.UserID, other)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(view)
}

// GetFriendshipsAllRelations handles GET /friendships/:id
// @Summary Every friendship touching a user, in any status
// @Tags friendships
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {array} models.FriendshipView
// @Failure 400 {object} models.ErrorResponse
// @Router /friendships/{id} [get]
func (s *Server) GetFriendshipsAllRelations(c *fiber.Ctx) error {
	userID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	views, err := s.friendships.GetFriendshipsAllRelations(c.UserContext(), userID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(views)
}

// GetFriends handles GET /friendships/users/:id/friends
// @Summary Accepted friends of a user
// @Tags friendships
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param page query int false "Zero based page"
// @Param size query int false "Page size" default(5)
// @Success 200 {object} models.PagedView[models.UserView]
// @Failure 400 {object} models.ErrorResponse
// @Router /friendships/users/{id}/friends [get]
func (s *Server) GetFriends(c *fiber.Ctx) error {
	userID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	page, err := parsePageRequest(c, service.DefaultFriendsPageSize)
	if err != nil {
		return nil
	}
	view, err := s.friendships.GetFriends(c.UserContext(), userID, page)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(view)
}

// GetIncomingFriendRequests handles GET /friendships/users/:id/requests
// @Summary Pending requests received by a user
// @Tags friendships
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param page query int false "Zero based page"
// @Param size query int false "Page size" default(5)
// @Success 200 {object} models.PagedView[models.FriendshipView]
// @Failure 400 {object} models.ErrorResponse
// @Router /friendships/users/{id}/requests [get]
func (s *Server) GetIncomingFriendRequests(c *fiber.Ctx) error {
	return s.listFriendRequests(c, s.friendships.GetIncomingFriendRequests)
}

// GetOutgoingFriendRequests handles GET /friendships/users/:id/requests/sent
// @Summary Pending requests sent by a user
// @Tags friendships
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param page query int false "Zero based page"
// @Param size query int false "Page size" default(5)
// @Success 200 {object} models.PagedView[models.FriendshipView]
// @Failure 400 {object} models.ErrorResponse
// @Router /friendships/users/{id}/requests/sent [get]
func (s *Server) GetOutgoingFriendRequests(c *fiber.Ctx) error {
	return s.listFriendRequests(c, s.friendships.GetOutgoingFriendRequests)
}

type friendRequestLister = func(ctx context.Context, userID uint, page models.PageRequest) (models.PagedView[models.FriendshipView], error)

func (s *Server) listFriendRequests(c *fiber.Ctx, list friendRequestLister) error {
	userID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	page, err := parsePageRequest(c, service.DefaultFriendsPageSize)
	if err != nil {
		return nil
	}
	view, err := list(c.UserContext(), userID, page)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(view)
}
