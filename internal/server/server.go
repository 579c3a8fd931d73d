// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	_ "chronicle/docs" // swagger docs
	"chronicle/internal/authz"
	"chronicle/internal/cache"
	"chronicle/internal/config"
	"chronicle/internal/database"
	"chronicle/internal/middleware"
	"chronicle/internal/models"
	"chronicle/internal/observability"
	"chronicle/internal/repository"
	"chronicle/internal/service"
	"chronicle/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	store          *storage.Store

	userRepo     repository.UserRepository
	groupRepo    repository.GroupRepository
	categoryRepo repository.CategoryRepository
	postRepo     repository.PostRepository
	imageRepo    repository.ImageRepository
	visitRepo    repository.VisitLogRepository

	userService     *service.UserService
	groupService    *service.GroupService
	categoryService *service.CategoryService
	postService     *service.PostService
	imageService    *service.ImageService
	visitService    *service.VisitLogService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.ConnectReadReplica(cfg); err != nil {
		log.Printf("read replica unavailable, falling back to primary: %v", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and
// optionally performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	postRepo := repository.NewPostRepository(db)
	imageRepo := repository.NewImageRepository(db)
	visitRepo := repository.NewVisitLogRepository(db)

	store := storage.NewStore(cfg.MediaRoot, cfg.MaxUploadSizeMB)

	prom := middleware.InitMetrics("chronicle-api")

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		store:          store,
		userRepo:       userRepo,
		groupRepo:      groupRepo,
		categoryRepo:   categoryRepo,
		postRepo:       postRepo,
		imageRepo:      imageRepo,
		visitRepo:      visitRepo,
	}
	server.userService = service.NewUserService(userRepo, groupRepo)
	server.groupService = service.NewGroupService(groupRepo)
	server.categoryService = service.NewCategoryService(categoryRepo)
	server.postService = service.NewPostService(postRepo, visitRepo, categoryRepo, store)
	server.imageService = service.NewImageService(imageRepo, store)
	server.visitService = service.NewVisitLogService(visitRepo)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Distributed tracing spans
	app.Use(middleware.TracingMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
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
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Chronicle Backend Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Uploaded media
	app.Static("/media", s.store.Root())

	// Token issuance and refresh
	api.Post("/token", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "token"), s.ObtainToken)
	api.Post("/token/refresh", s.RefreshToken)

	// User routes; registration is the only open write in the API
	users := api.Group("/users")
	users.Post("/", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.CreateUser)
	users.Get("/", s.AuthRequired(), s.ListUsers)
	users.Get("/:id", s.AuthRequired(), s.GetUser)
	users.Put("/:id", s.AuthRequired(), s.UpdateUser)
	users.Patch("/:id", s.AuthRequired(), s.UpdateUser)
	users.Delete("/:id", s.AuthRequired(), s.DeleteUser)

	// Group routes: world-readable, admin-writable
	groups := api.Group("/groups")
	groups.Get("/", s.OptionalAuth(), s.ListGroups)
	groups.Get("/:id", s.OptionalAuth(), s.GetGroup)
	groups.Post("/", s.AuthRequired(), s.CreateGroup)
	groups.Put("/:id", s.AuthRequired(), s.UpdateGroup)
	groups.Patch("/:id", s.AuthRequired(), s.UpdateGroup)
	groups.Delete("/:id", s.AuthRequired(), s.DeleteGroup)

	// Category routes: the whole taxonomy is staff-only
	categories := api.Group("/categories", s.AuthRequired())
	categories.Get("/", s.ListCategories)
	categories.Post("/", s.CreateCategory)
	categories.Get("/:id", s.GetCategory)
	categories.Put("/:id", s.UpdateCategory)
	categories.Patch("/:id", s.UpdateCategory)
	categories.Delete("/:id", s.DeleteCategory)

	// Post routes: reads are public, retrieval has side effects for
	// authenticated readers, so the read routes resolve the caller
	// opportunistically.
	posts := api.Group("/posts")
	posts.Get("/", s.OptionalAuth(), s.ListPosts)
	posts.Get("/:id", s.OptionalAuth(), s.GetPost)
	posts.Post("/", s.AuthRequired(), middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Put("/:id", s.AuthRequired(), s.UpdatePost)
	posts.Patch("/:id", s.AuthRequired(), s.UpdatePost)
	posts.Delete("/:id", s.AuthRequired(), s.DeletePost)

	// Heartbeat closing an open visit log
	api.Post("/post_read_signal", s.AuthRequired(), s.PostReadSignal)

	// Image routes: nothing here is anonymous
	images := api.Group("/images", s.AuthRequired())
	images.Get("/", s.ListImages)
	images.Post("/", middleware.RateLimit(
		s.redis, 20, 10*time.Minute, "upload_image"), s.UploadImage)
	images.Get("/:id", s.GetImage)
	images.Put("/:id", s.UpdateImage)
	images.Patch("/:id", s.UpdateImage)
	images.Delete("/:id", s.DeleteImage)

	// Visit log routes (read-only; closing goes through the read signal)
	visits := api.Group("/visits", s.AuthRequired())
	visits.Get("/", s.ListVisitLogs)
	visits.Get("/:id", s.GetVisitLog)
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
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// The API degrades without Redis (no caching, no rate limits),
		// so readiness only reports it rather than failing on it.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "Chronicle",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns the authentication middleware. On success the
// resolved identity is stored in locals as an authorization caller; the
// account row is loaded so staff and active flags are current, not whatever
// the token was minted with.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := s.parseBearer(c)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(err.Error()))
		}

		user, err := s.resolveClaims(c, claims)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(err.Error()))
		}

		s.establishCaller(c, user)
		return c.Next()
	}
}

// OptionalAuth resolves the caller when a valid token is presented and
// passes through anonymously otherwise. It never writes an error response.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := s.parseBearer(c)
		if err != nil {
			return c.Next()
		}
		user, err := s.resolveClaims(c, claims)
		if err != nil {
			return c.Next()
		}
		s.establishCaller(c, user)
		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-staff users with 403.
// Must be placed after AuthRequired so that the caller is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !s.caller(c).Staff() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// parseBearer extracts and validates the access token from the Authorization
// header (or a token query parameter) and returns its claims.
func (s *Server) parseBearer(c *fiber.Ctx) (jwt.MapClaims, error) {
	authHeader := c.Get("Authorization")
	tokenString := ""
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			tokenString = parts[1]
		}
	}
	if tokenString == "" {
		tokenString = c.Query("token")
	}
	if tokenString == "" {
		observability.AuthFailures.WithLabelValues("missing_token").Inc()
		return nil, fmt.Errorf("Authorization required")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		observability.AuthFailures.WithLabelValues("invalid_token").Inc()
		return nil, fmt.Errorf("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		observability.AuthFailures.WithLabelValues("invalid_claims").Inc()
		return nil, fmt.Errorf("Invalid token claims")
	}

	if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != tokenIssuer {
		observability.AuthFailures.WithLabelValues("invalid_issuer").Inc()
		return nil, fmt.Errorf("Invalid token issuer")
	}
	if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != tokenAudience {
		observability.AuthFailures.WithLabelValues("invalid_audience").Inc()
		return nil, fmt.Errorf("Invalid token audience")
	}

	// Refresh tokens never authenticate requests directly.
	if typ, _ := claims["typ"].(string); typ == refreshTokenType {
		observability.AuthFailures.WithLabelValues("refresh_as_access").Inc()
		return nil, fmt.Errorf("Refresh token cannot be used for authentication")
	}

	// Check JTI for revocation
	if jti, exists := claims["jti"].(string); exists && jti != "" && s.redis != nil {
		isBlacklisted, err := s.redis.Exists(c.Context(), "blacklist:"+jti).Result()
		if err == nil && isBlacklisted > 0 {
			observability.AuthFailures.WithLabelValues("revoked").Inc()
			return nil, fmt.Errorf("Token has been revoked")
		}
	}

	return claims, nil
}

// resolveClaims loads the account named by the subject claim and rejects
// deactivated accounts.
func (s *Server) resolveClaims(c *fiber.Ctx, claims jwt.MapClaims) (*models.User, error) {
	sub, ok := claims["sub"].(string)
	if !ok {
		observability.AuthFailures.WithLabelValues("invalid_subject").Inc()
		return nil, fmt.Errorf("Invalid subject claim")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		observability.AuthFailures.WithLabelValues("invalid_subject").Inc()
		return nil, fmt.Errorf("Invalid user ID in token")
	}

	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		observability.AuthFailures.WithLabelValues("unknown_user").Inc()
		return nil, fmt.Errorf("Invalid or expired token")
	}
	if !user.IsActive {
		observability.AuthFailures.WithLabelValues("inactive_user").Inc()
		return nil, fmt.Errorf("Account is deactivated")
	}
	return user, nil
}

// establishCaller stores the identity in locals and syncs it to the user
// context for logging and downstream services.
func (s *Server) establishCaller(c *fiber.Ctx, user *models.User) {
	c.Locals("userID", user.ID.String())
	c.Locals("caller", authz.Caller{User: user})
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, user.ID.String())
	c.SetUserContext(ctx)
}

// Start starts the server
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName:   "Chronicle API",
		BodyLimit: (s.config.MaxUploadSizeMB + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
