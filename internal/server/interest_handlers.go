package server

import (
	"context"

	"nodeback/internal/models"

	"github.com/gofiber/fiber/v2"
)

type interestsRequest struct {
	Tags []string `json:"tags"`
}

// GetTags handles GET /posts/tags/
func (s *Server) GetTags(c *fiber.Ctx) error {
	tags, err := s.interestService.ListTags(c.UserContext())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(tags)
}

// AddInterests handles POST /posts/interests/
// @Summary Add tags to the caller's interests
// @Description Every tag must already exist; an unknown tag rejects the whole request
// @Tags interests
// @Accept json
// @Produce json
// @Param request body object{tags=[]string} true "Tag names"
// @Success 200 {object} models.Interest
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/interests/ [post]
func (s *Server) AddInterests(c *fiber.Ctx) error {
	return s.writeInterests(c, s.interestService.AddInterests)
}

// ReplaceInterests handles PUT /posts/update-interests/
func (s *Server) ReplaceInterests(c *fiber.Ctx) error {
	return s.writeInterests(c, s.interestService.ReplaceInterests)
}

func (s *Server) writeInterests(c *fiber.Ctx, write func(context.Context, uint, []string) (*models.Interest, error)) error {
	var req interestsRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	interest, err := write(c.UserContext(), currentUserID(c), splitTags(req.Tags))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(interest)
}
