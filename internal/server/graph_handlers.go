package server

import (
	"nodeback/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ToggleFollow handles POST /posts/follow/:id/
// @Summary Follow or unfollow a user
// @Tags graph
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{status=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/follow/{id}/ [post]
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	result, err := s.followService.ToggleFollow(c.UserContext(), currentUserID(c), targetID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"status": result.Status(), "following": result.Following})
}

func (s *Server) respondUsers(c *fiber.Ctx, users []models.User, err error) error {
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(users)
}

// GetFollowers handles GET /posts/followers/
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	users, err := s.followService.Followers(c.UserContext(), currentUserID(c), parsePagination(c))
	return s.respondUsers(c, users, err)
}

// GetFollowing handles GET /posts/following/
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	users, err := s.followService.Following(c.UserContext(), currentUserID(c), parsePagination(c))
	return s.respondUsers(c, users, err)
}

// GetNetwork handles GET /posts/network/: everyone the caller does not follow yet.
func (s *Server) GetNetwork(c *fiber.Ctx) error {
	users, err := s.followService.Network(c.UserContext(), currentUserID(c), parsePagination(c))
	return s.respondUsers(c, users, err)
}

// GetContacts handles GET /posts/contacts/: mutual follows.
func (s *Server) GetContacts(c *fiber.Ctx) error {
	users, err := s.followService.Contacts(c.UserContext(), currentUserID(c), parsePagination(c))
	return s.respondUsers(c, users, err)
}
