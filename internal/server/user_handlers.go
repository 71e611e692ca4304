package server

import (
	"nodeback/internal/models"
	"nodeback/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMe handles GET /users/me/
// @Summary Current user
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/me/ [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.userService.Me(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateMe handles PATCH /users/update/. Absent fields are left unchanged.
func (s *Server) UpdateMe(c *fiber.Ctx) error {
	var req struct {
		FirstName    *string `json:"first_name"`
		LastName     *string `json:"last_name"`
		Age          *int    `json:"age"`
		Gender       *string `json:"gender"`
		Country      *string `json:"country"`
		Education    *string `json:"education"`
		Work         *string `json:"work"`
		ProfileImage *string `json:"profile_image"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:       currentUserID(c),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Age:          req.Age,
		Gender:       req.Gender,
		Country:      req.Country,
		Education:    req.Education,
		Work:         req.Work,
		ProfileImage: req.ProfileImage,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(user)
}

// ChangePassword handles POST /users/change-password/
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := s.userService.ChangePassword(c.UserContext(), currentUserID(c), req.OldPassword, req.NewPassword); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"status": "Password changed"})
}

// ListUsers handles GET /users/list/ (staff only)
func (s *Server) ListUsers(c *fiber.Ctx) error {
	users, err := s.userService.ListUsers(c.UserContext(), currentUserID(c), parsePagination(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(users)
}

// BlockUser handles POST /users/block/:id/
// @Summary Deactivate an account
// @Description Staff only. Live sessions of the user receive a logout_user event.
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{status=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/block/{id}/ [post]
func (s *Server) BlockUser(c *fiber.Ctx) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.userService.Block(c.UserContext(), currentUserID(c), targetID); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"status": "User blocked"})
}
