package server

import (
	"log/slog"
	"time"

	"nodeback/internal/middleware"
	"nodeback/internal/models"
	"nodeback/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       *int   `json:"age"`
	Gender    string `json:"gender"`
	Country   string `json:"country"`
	Education string `json:"education"`
	Work      string `json:"work"`
}

// Register handles POST /users/register/
// @Summary User signup
// @Description Register a new account and return an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body registerRequest true "Signup request"
// @Success 201 {object} object{token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/register/ [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Age:       req.Age,
		Gender:    req.Gender,
		Country:   req.Country,
		Education: req.Education,
		Work:      req.Work,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}

	token, claims, err := middleware.IssueToken(user.ID, middleware.DefaultTokenTTL)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token":      token,
		"expires_at": claims.ExpiresAt,
		"user":       user,
	})
}

// Login handles POST /users/login/
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} object{token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/login/ [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	token, claims, err := middleware.IssueToken(user.ID, middleware.DefaultTokenTTL)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{
		"token":      token,
		"expires_at": claims.ExpiresAt,
		"user":       user,
	})
}

// Logout handles POST /users/logout/ by revoking the presented token until
// it would have expired. Without Redis tokens simply run out.
func (s *Server) Logout(c *fiber.Ctx) error {
	jti, _ := c.Locals("jti").(string)
	expiresAt, _ := c.Locals("tokenExpiresAt").(time.Time)
	ttl := time.Until(expiresAt)

	if jti != "" && ttl > 0 {
		if s.redis == nil {
			middleware.Logger.WarnContext(c.UserContext(), "token revocation skipped, redis unavailable")
		} else if err := s.redis.Set(c.UserContext(), revokedJTIPrefix+jti, "1", ttl).Err(); err != nil {
			middleware.RedisErrors.WithLabelValues("set").Inc()
			middleware.Logger.ErrorContext(c.UserContext(), "failed to revoke token",
				slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusServiceUnavailable, models.NewUnavailableError(err))
		}
	}
	return c.JSON(fiber.Map{"status": "Logged out"})
}
