package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /posts/notifications/
// @Summary Unseen notifications
// @Tags notifications
// @Produce json
// @Success 200 {array} models.Notification
// @Security BearerAuth
// @Router /posts/notifications/ [get]
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	notes, err := s.notificationService.Unseen(c.UserContext(), currentUserID(c), parsePagination(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(notes)
}

// MarkNotificationSeen handles POST /posts/notifications-seen/:id/
func (s *Server) MarkNotificationSeen(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.notificationService.MarkSeen(c.UserContext(), currentUserID(c), id); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"status": "Notification seen"})
}

// MarkAllNotificationsSeen handles POST /posts/notifications-seen/
func (s *Server) MarkAllNotificationsSeen(c *fiber.Ctx) error {
	n, err := s.notificationService.MarkAllSeen(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"status": "Notifications seen", "count": n})
}
