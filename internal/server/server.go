// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chirp/internal/cache"
	"chirp/internal/config"
	"chirp/internal/database"
	"chirp/internal/featureflags"
	"chirp/internal/middleware"
	"chirp/internal/models"
	"chirp/internal/repository"
	"chirp/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

// Per-action budgets on top of the global limiter.
var (
	signupQuota  = middleware.Quota{Action: "signup", Limit: 3, Window: 10 * time.Minute}
	confirmQuota = middleware.Quota{Action: "confirm", Limit: 10, Window: 10 * time.Minute}
	loginQuota   = middleware.Quota{Action: "login", Limit: 10, Window: 5 * time.Minute}
	followQuota  = middleware.Quota{Action: "follow", Limit: 30, Window: time.Minute}
	postQuota    = middleware.Quota{Action: "create_post", Limit: 30, Window: time.Minute}
	replyQuota   = middleware.Quota{Action: "create_reply", Limit: 30, Window: time.Minute}
	engageQuota  = middleware.Quota{Action: "engage", Limit: 60, Window: time.Minute}
)

// Server holds all dependencies and provides handlers
type Server struct {
	config            *config.Config
	db                *gorm.DB
	cache             *cache.Store
	app               *fiber.App
	promMiddleware    *fiberprometheus.FiberPrometheus
	auth              *middleware.Auth
	flags             *featureflags.Set
	userRepo          repository.UserRepository
	graphService      *service.GraphService
	feedService       *service.FeedService
	engagementService *service.EngagementService
	userService       *service.UserService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return NewServerWithDeps(cfg, db, cache.Connect(cfg.RedisURL), nil), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// A nil store runs without cache; a nil mailer logs confirmation links.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, store *cache.Store, mailer service.Mailer) *Server {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	followRepo := repository.NewFollowRepository(db)

	graph := service.NewGraphService(userRepo, followRepo, postRepo, store)
	flags := featureflags.Parse(cfg.FeatureFlags)
	users := service.NewUserService(userRepo, store, mailer, flags)
	auth := middleware.NewAuth(cfg.JWTSecret, time.Duration(cfg.JWTExpiryHours)*time.Hour).
		WithUserLookup(users.Exists)

	return &Server{
		config:            cfg,
		db:                db,
		cache:             store,
		promMiddleware:    middleware.InitMetrics("chirp-api"),
		auth:              auth,
		flags:             flags,
		userRepo:          userRepo,
		graphService:      graph,
		feedService:       service.NewFeedService(postRepo, userRepo, graph, cfg.FeedPageSize),
		engagementService: service.NewEngagementService(postRepo, userRepo, followRepo, store),
		userService:       users,
	}
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        s.config.RateLimitPerMinute,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
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

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	redis := s.cache.Client()
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(redis, signupQuota), s.Signup)
	auth.Post("/confirm", middleware.RateLimit(redis, confirmQuota), s.ConfirmEmail)
	auth.Post("/login", middleware.RateLimit(redis, loginQuota), s.Login)

	api.Get("/me", s.auth.Required, s.GetMe)
	api.Get("/flags", s.auth.Optional, s.GetFeatureFlags)
	api.Get("/feed", s.auth.Required, s.GetHomeFeed)

	explore := api.Group("/explore", s.auth.Optional)
	explore.Get("/posts", s.GetLatestPosts)
	explore.Get("/users", s.GetLatestUsers)

	users := api.Group("/users")
	// Specific /:username/:resource routes before the generic /:username route
	users.Get("/:username/posts", s.auth.Optional, s.GetUserPosts)
	users.Get("/:username/replies", s.auth.Optional, s.GetUserPostsAndReplies)
	users.Get("/:username/likes", s.auth.Optional, s.GetUserLikes)
	users.Get("/:username/followers", s.auth.Optional, s.GetFollowers)
	users.Get("/:username/following", s.auth.Optional, s.GetFollowing)
	users.Post("/:username/follow", s.auth.Required, middleware.RateLimit(redis, followQuota), s.FollowUser)
	users.Delete("/:username/follow", s.auth.Required, s.UnfollowUser)
	users.Get("/:username", s.auth.Optional, s.GetUserProfile)

	posts := api.Group("/posts")
	posts.Post("/", s.auth.Required, middleware.RateLimit(redis, postQuota), s.CreatePost)
	posts.Get("/:id/likes", s.auth.Optional, s.GetPostLikers)
	posts.Get("/:id/reposts", s.auth.Optional, s.GetPostReposters)
	posts.Post("/:id/replies", s.auth.Required, middleware.RateLimit(redis, replyQuota), s.CreateReply)
	posts.Post("/:id/like", s.auth.Required, middleware.RateLimit(redis, engageQuota), s.LikePost)
	posts.Delete("/:id/like", s.auth.Required, middleware.RateLimit(redis, engageQuota), s.UnlikePost)
	posts.Post("/:id/repost", s.auth.Required, middleware.RateLimit(redis, engageQuota), s.RepostPost)
	posts.Delete("/:id/repost", s.auth.Required, middleware.RateLimit(redis, engageQuota), s.UnrepostPost)
	posts.Get("/:id", s.auth.Optional, s.GetThread)
	posts.Delete("/:id", s.auth.Required, s.DeletePost)

	settings := api.Group("/settings", s.auth.Required)
	settings.Get("/", s.GetSettings)
	settings.Put("/", s.UpdateSettings)
	settings.Delete("/", s.DeleteAccount)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	checks := fiber.Map{}
	healthy := true

	if err := database.Ping(ctx, s.db); err != nil {
		checks["database"] = "unhealthy"
		healthy = false
	} else {
		checks["database"] = "healthy"
	}

	switch {
	case s.cache.Client() == nil:
		checks["redis"] = "disabled"
	case s.cache.Ping(ctx) != nil:
		checks["redis"] = "unhealthy"
		healthy = false
	default:
		checks["redis"] = "healthy"
	}

	status := fiber.StatusOK
	overall := "healthy"
	if !healthy {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	body := fiber.Map{
		"status": overall,
		"checks": checks,
		"time":   time.Now(),
	}
	if healthy {
		if users, err := s.userRepo.Count(ctx); err == nil {
			body["users"] = users
		}
	}
	return c.Status(status).JSON(body)
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Chirp API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, err)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	s.app = s.App()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if err := s.cache.Close(); err != nil {
		middleware.Logger.Error("error closing redis", slog.String("error", err.Error()))
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
