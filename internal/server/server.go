// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "nodeback/docs" // swagger docs
	"nodeback/internal/bootstrap"
	"nodeback/internal/config"
	"nodeback/internal/database"
	"nodeback/internal/featureflags"
	"nodeback/internal/middleware"
	"nodeback/internal/models"
	"nodeback/internal/notifications"
	"nodeback/internal/repository"
	"nodeback/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	wsTicketPrefix   = "ws_ticket:"
	revokedJTIPrefix = "revoked_jti:"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	repos        *repository.Repositories
	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager

	postService         *service.PostService
	commentService      *service.CommentService
	followService       *service.FollowService
	feedService         *service.FeedService
	interestService     *service.InterestService
	notificationService *service.NotificationService
	userService         *service.UserService
	imageService        *service.ImageService
}

// NewServer connects to the database and Redis and wires every service.
func NewServer(cfg *config.Config) (*Server, error) {
	// Redis is optional; a nil client disables tickets, revocation and pub/sub.
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedTags: true})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server requires a config and a database")
	}
	middleware.InitMiddleware(cfg)

	repos := repository.NewRepositories(db)
	uow := repository.NewUnitOfWork(db)
	flags := featureflags.NewManager(cfg.FeatureFlags)

	hub := notifications.NewHub(redisClient)
	notifier := notifications.NewNotifier(redisClient)
	fanout := service.NewFanout(notifications.NewPublisher(hub, notifier), flags)
	images := service.NewImageService(cfg)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("nodeback-api"),
		repos:          repos,
		notifier:       notifier,
		hub:            hub,
		featureFlags:   flags,

		postService:         service.NewPostService(repos, uow, images, fanout),
		commentService:      service.NewCommentService(repos, uow, fanout),
		followService:       service.NewFollowService(repos, uow, fanout),
		feedService:         service.NewFeedService(repos, flags),
		interestService:     service.NewInterestService(repos, uow),
		notificationService: service.NewNotificationService(repos.Notifications),
		userService:         service.NewUserService(repos.Users, fanout),
		imageService:        images,
	}
	hub.SetPresenceCallbacks(s.handleUserOnline, s.handleUserOffline)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.Tracing())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || strings.HasPrefix(c.Path(), "/health")
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application. Trailing slashes
// are optional because the app does not use strict routing.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Static("/media", s.imageService.MediaDir(), fiber.Static{ByteRange: true})

	// Public account routes
	users := app.Group("/users")
	users.Post("/register", middleware.RateLimit(s.redis, middleware.RegisterLimit), s.Register)
	users.Post("/login", middleware.RateLimit(s.redis, middleware.LoginLimit), s.Login)

	// Authenticated account routes
	users.Get("/me", s.AuthRequired(), s.GetMe)
	users.Patch("/update", s.AuthRequired(), s.UpdateMe)
	users.Post("/change-password", s.AuthRequired(), s.ChangePassword)
	users.Post("/logout", s.AuthRequired(), s.Logout)
	users.Get("/list", s.AuthRequired(), s.ListUsers)
	users.Post("/block/:id<int>", s.AuthRequired(), s.BlockUser)

	posts := app.Group("/posts", s.AuthRequired())

	// Feed and listings
	posts.Get("/", s.GetFeed)
	posts.Get("/user-posts", s.GetUserPosts)
	posts.Get("/search", s.SearchPosts)
	posts.Get("/blocked-posts", s.GetBlockedPosts)
	posts.Get("/reported-posts", s.GetReportedPosts)
	posts.Post("/profile/:email", s.GetProfile)

	// Post lifecycle
	posts.Post("/create-post", middleware.RateLimit(s.redis, middleware.PostLimit), s.CreatePost)
	posts.Post("/update-post/:id<int>", s.UpdatePost)
	posts.Delete("/delete-post/:id<int>", s.DeletePost)
	posts.Post("/restore-post/:id<int>", s.RestorePost)
	posts.Post("/like/:id<int>", s.ToggleLike)
	posts.Post("/report/:id<int>", s.ReportPost)
	posts.Delete("/block-post/:id<int>", s.BlockPost)

	// Social graph
	posts.Post("/follow/:id<int>", s.ToggleFollow)
	posts.Get("/followers", s.GetFollowers)
	posts.Get("/following", s.GetFollowing)
	posts.Get("/network", s.GetNetwork)
	posts.Get("/contacts", s.GetContacts)

	// Notifications
	posts.Get("/notifications", s.GetNotifications)
	posts.Post("/notifications-seen/:id<int>", s.MarkNotificationSeen)
	posts.Post("/notifications-seen", s.MarkAllNotificationsSeen)

	// Interests
	posts.Get("/tags", s.GetTags)
	posts.Post("/interests", s.AddInterests)
	posts.Put("/update-interests", s.ReplaceInterests)

	// Specific /:id/<resource> routes before the generic /:id route
	posts.Post("/:id<int>/comment", middleware.RateLimit(s.redis, middleware.CommentLimit), s.AddComment)
	posts.Delete("/:id<int>/delete-comment", s.DeleteComment)
	posts.Get("/:id<int>/comments", s.GetComments)
	posts.Get("/:id<int>", s.GetPost)

	ws := app.Group("/ws")
	ws.Post("/ticket", s.AuthRequired(), s.IssueWSTicket)
	ws.Get("/notifications", s.AuthRequired(), s.requireUpgrade, s.NotificationsSocket())

	admin := app.Group("/admin", s.AuthRequired(), s.StaffRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Get("/dashboard", monitor.New(monitor.Config{Title: "nodeback metrics"}))
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports 503 only when the database is unreachable. Redis
// failures degrade the status since every operation works without Redis.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	switch {
	case dbStatus != "healthy":
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	case redisStatus == "unhealthy":
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// StaffRequired rejects non-staff callers with 403. It must run after
// AuthRequired so userID is in locals.
func (s *Server) StaffRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := s.userService.EnsureActive(c.UserContext(), currentUserID(c))
		if err != nil {
			return s.respondServiceError(c, err)
		}
		if !user.IsStaff {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Staff access required"))
		}
		return c.Next()
	}
}

// AuthRequired authenticates with a single-use WebSocket ticket on /ws/
// routes, otherwise with a bearer token. Revoked tokens and deactivated
// accounts are rejected.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isWSPath := strings.HasPrefix(c.Path(), "/ws/")

		if ticket := c.Query("ticket"); ticket != "" && isWSPath {
			userID, err := s.consumeWSTicket(c.UserContext(), ticket)
			if err != nil {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
			return s.authenticated(c, userID, "")
		}

		tokenString, err := middleware.BearerToken(c)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(err.Error()))
		}
		claims, err := middleware.ParseToken(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(err.Error()))
		}

		if claims.JTI != "" && s.redis != nil {
			revoked, err := s.redis.Exists(c.UserContext(), revokedJTIPrefix+claims.JTI).Result()
			if err != nil {
				middleware.RedisErrors.WithLabelValues("exists").Inc()
			} else if revoked > 0 {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Token has been revoked"))
			}
		}

		c.Locals("tokenExpiresAt", claims.ExpiresAt)
		return s.authenticated(c, claims.UserID, claims.JTI)
	}
}

func (s *Server) authenticated(c *fiber.Ctx, userID uint, jti string) error {
	if _, err := s.userService.EnsureActive(c.UserContext(), userID); err != nil {
		return s.respondServiceError(c, err)
	}
	c.Locals("userID", userID)
	if jti != "" {
		c.Locals("jti", jti)
	}
	middleware.WithRequestValues(c)
	return c.Next()
}

// consumeWSTicket atomically reads and deletes a ticket.
func (s *Server) consumeWSTicket(ctx context.Context, ticket string) (uint, error) {
	if s.redis == nil {
		return 0, errors.New("tickets require redis")
	}
	raw, err := s.redis.GetDel(ctx, wsTicketPrefix+ticket).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			middleware.RedisErrors.WithLabelValues("getdel").Inc()
		}
		return 0, err
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("malformed ticket payload %q", raw)
	}
	return uint(id), nil
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled request error",
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// NewApp builds the Fiber app with middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "nodeback API",
		BodyLimit:    int(s.imageService.MaxUploadBytes()) + 1024*1024,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.notifier.Enabled() {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start notification wiring",
					slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down notification hub", slog.String("error", err.Error()))
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
