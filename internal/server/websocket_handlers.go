package server

import (
	"errors"

	"socialnet/internal/cache"
	"socialnet/internal/models"
	"socialnet/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WSTicketResponse carries a single-use websocket ticket.
type WSTicketResponse struct {
	Ticket    string `json:"ticket"`
	ExpiresIn int    `json:"expires_in"`
}

// IssueWSTicket handles POST /ws/ticket
// @Summary Issue a single-use ticket for the notification websocket
// @Tags realtime
// @Produce json
// @Security BearerAuth
// @Success 200 {object} WSTicketResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	if !s.tickets.Available() {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(notifications.ErrTicketsUnavailable))
	}
	ticket, err := s.tickets.Issue(c.UserContext(), caller.UserID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(WSTicketResponse{Ticket: ticket, ExpiresIn: int(cache.WSTicketTTL.Seconds())})
}

// WebSocketUpgrade authenticates the upgrade request with ?ticket= and stores
// the ticket owner in locals for WebsocketHandler.
func (s *Server) WebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		userID, err := s.tickets.Redeem(c.UserContext(), c.Query("ticket"))
		if err != nil {
			if errors.Is(err, notifications.ErrTicketsUnavailable) {
				return models.RespondWithError(c, fiber.StatusServiceUnavailable, models.NewInternalError(err))
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired ticket"))
		}
		c.Locals("userID", userID)
		return c.Next()
	}
}

// WebsocketHandler handles GET /ws. The connection only receives events; the
// hub fans out whatever the Notifier publishes for the user.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			s.logger.Warn("websocket registration refused", "user_id", userID, "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		connections := s.hub.ConnectionCount(userID)
		s.logger.Debug("websocket connected", "user_id", userID, "connections", connections)

		hello := fiber.Map{"user_id": userID, "connections": connections}
		if hello, err := notifications.EncodeEvent(notifications.EventConnected, hello); err == nil {
			client.TrySend(hello)
		}

		go client.WritePump()
		client.ReadPump()
	})
}
