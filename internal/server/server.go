// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "socialnet/docs" // swagger docs
	"socialnet/internal/bootstrap"
	"socialnet/internal/cache"
	"socialnet/internal/config"
	"socialnet/internal/middleware"
	"socialnet/internal/models"
	"socialnet/internal/notifications"
	"socialnet/internal/repository"
	"socialnet/internal/service"

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

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	logger         *slog.Logger
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	notifier *notifications.Notifier
	hub      *notifications.Hub
	tickets  *notifications.TicketStore

	tokens        *service.TokenService
	users         *service.UserService
	friendships   *service.FriendshipService
	posts         *service.PostService
	comments      *service.CommentService
	profileImages *service.ProfileImageService
}

// NewServer connects to the database and Redis and builds a Server on top.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{Logger: logger, SeedDemoData: cfg.SeedOnStart})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb, logger)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis. redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, logger *slog.Logger) (*Server, error) {
	logger = middleware.OrDefault(logger)

	key, err := service.LoadSigningKey(cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, err
	}

	c := cache.New(redisClient)
	userRepo := repository.NewUserRepository(db, c)
	postRepo := repository.NewPostRepository(db, c)
	commentRepo := repository.NewCommentRepository(db)
	friendshipRepo := repository.NewFriendshipRepository(db)

	notifier := notifications.NewNotifier(redisClient, logger)

	s := &Server{
		config:         cfg,
		logger:         logger,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("socialnet-api"),
		notifier:       notifier,
		hub:            notifications.NewHub(logger),
		tickets:        notifications.NewTicketStore(redisClient),
		tokens:         service.NewTokenService(key, cfg.JWTIssuer, time.Duration(cfg.JWTTTLMinutes)*time.Minute, redisClient),
		users:          service.NewUserService(userRepo, postRepo, logger),
		friendships:    service.NewFriendshipService(friendshipRepo, userRepo, notifier, logger),
		posts:          service.NewPostService(postRepo, userRepo, notifier, logger),
		comments:       service.NewCommentService(commentRepo, postRepo, notifier, logger),
		profileImages:  service.NewProfileImageService(userRepo, cfg, logger),
	}
	return s, nil
}

// App builds the Fiber application with middleware and routes. It is safe to call
// once per Server.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:   "socialnet API",
		BodyLimit: (s.config.ImageMaxUploadSizeMB + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			s.logger.ErrorContext(c.UserContext(), "unhandled request error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger(s.logger))

	// CORS runs before the limiter so rejected browser requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = config.DefaultAllowedOrigins
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	auth := middleware.AuthRequired(s.tokens)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/metrics/dashboard", auth, adminOnly, monitor.New(monitor.Config{
		Title: "socialnet backend metrics",
	}))
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Public routes must be registered before the authenticated groups below.
	app.Post("/request-token", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.RequestToken)
	app.Post("/users/register", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Register)
	app.Get("/users/:username/profile-image", s.GetProfileImage)
	app.Get("/ws", s.WebSocketUpgrade(), s.WebsocketHandler())

	app.Post("/logout", auth, s.Logout)
	app.Post("/ws/ticket", auth, s.IssueWSTicket)
	app.Get("/admin", auth, adminOnly, s.AdminPage)

	users := app.Group("/users", auth)
	users.Post("/", adminOnly, s.CreateUser)
	users.Get("/", adminOnly, s.ListUsers)
	users.Get("/me", s.GetMe)
	users.Put("/me", s.UpdateMe)
	users.Post("/profile-image", s.UploadProfileImage)
	// Specific /:id/:resource routes before the generic /:id routes.
	users.Get("/:id/with-posts", s.GetUserWithPosts)
	users.Post("/:userId/posts", middleware.RateLimit(s.redis, 5, time.Minute, "create_post"), s.CreatePostForUser)
	users.Get("/:id", s.GetUser)
	users.Put("/:id", s.UpdateUser)
	users.Delete("/:id", s.DeleteUser)

	friendships := app.Group("/friendships", auth)
	friendships.Post("/", middleware.RateLimit(s.redis, 5, 5*time.Minute, "friend_request"), s.SendFriendRequest)
	friendships.Get("/status", s.GetFriendshipStatus)
	friendships.Get("/users/:id/friends", s.GetFriends)
	friendships.Get("/users/:id/requests/sent", s.GetOutgoingFriendRequests)
	friendships.Get("/users/:id/requests", s.GetIncomingFriendRequests)
	friendships.Put("/:id/accept", s.AcceptFriendRequest)
	friendships.Put("/:id/reject", s.RejectFriendRequest)
	friendships.Get("/:id", s.GetFriendshipsAllRelations)

	posts := app.Group("/posts", auth)
	posts.Get("/", s.GetPosts)
	posts.Post("/:id/like", s.TogglePostLike)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	comments := app.Group("/comments", auth)
	comments.Post("/", middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	comments.Get("/post/:postId", s.GetPostComments)
	comments.Get("/:id/replies", s.GetCommentReplies)
	comments.Post("/:id/like", s.ToggleCommentLike)
	comments.Put("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports 503 when the database is unreachable. Redis is optional:
// without it the API runs without cache, revocation and realtime delivery.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	switch {
	case dbStatus != "healthy" || redisStatus == "unhealthy":
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	case redisStatus == "unavailable":
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

// Start wires the realtime hub and listens on the configured port.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	if s.redis != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				s.logger.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()),
					slog.String("error", err.Error()))
			}
		}()
	}

	s.logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
	}
	if err := s.hub.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown %s: %w", s.hub.Name(), err))
	}
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			errs = append(errs, fmt.Errorf("close sql DB: %w", cerr))
		}
	}
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", rerr))
		}
	}

	s.logger.Info("server shutdown complete")
	return errors.Join(errs...)
}
