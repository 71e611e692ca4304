package server

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"nodeback/internal/middleware"
	"nodeback/internal/models"
	"nodeback/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// wsTicketTTL bounds how long an issued ticket may wait before the upgrade.
const wsTicketTTL = 30 * time.Second

// IssueWSTicket handles POST /ws/ticket
// @Summary Issue a WebSocket ticket
// @Description Returns a single-use ticket to pass as ?ticket= on the WebSocket upgrade, since browsers cannot set headers there
// @Tags realtime
// @Produce json
// @Success 200 {object} object{ticket=string,expires_in=int}
// @Failure 503 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewUnavailableError(errors.New("websocket tickets require redis")))
	}

	ticket := uuid.NewString()
	userID := strconv.FormatUint(uint64(currentUserID(c)), 10)
	if err := s.redis.Set(c.UserContext(), wsTicketPrefix+ticket, userID, wsTicketTTL).Err(); err != nil {
		middleware.RedisErrors.WithLabelValues("set").Inc()
		return models.RespondWithError(c, fiber.StatusServiceUnavailable, models.NewUnavailableError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

func (s *Server) requireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// NotificationsSocket handles GET /ws/notifications. The connection joins
// the caller's group on the hub and receives notification and logout_user
// events until either side closes.
func (s *Server) NotificationsSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok || userID == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket registration refused",
				slog.Uint64("user_id", uint64(userID)),
				slog.String("error", err.Error()),
			)
			msg := `{"error":"too many connections"}`
			if errors.Is(err, notifications.ErrServerConnLimit) {
				msg = `{"error":"server busy"}`
			}
			_ = conn.WriteMessage(websocket.TextMessage, []byte(msg))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}
