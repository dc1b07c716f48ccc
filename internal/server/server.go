// Package server contains the HTTP handlers and wiring for the blog API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	_ "inkwell/docs" // swagger docs
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
)

const appName = "Blog API"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	store          *database.Handle
	redis          *redis.Client
	logger         *slog.Logger
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	postService    *service.PostService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil, which disables list caching, post events and the
// create rate limit.
func NewServerWithDeps(
	cfg *config.Config,
	store *database.Handle,
	redisClient *redis.Client,
	logger *slog.Logger,
	opts ...service.Option,
) (*Server, error) {
	postRepo, err := repository.NewPostRepository(store, logger)
	if err != nil {
		return nil, err
	}
	return newServer(cfg, store, redisClient, logger, postRepo, opts...), nil
}

func newServer(
	cfg *config.Config,
	store *database.Handle,
	redisClient *redis.Client,
	logger *slog.Logger,
	postRepo repository.PostRepository,
	opts ...service.Option,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	var postCache *cache.Cache
	var notifier *notifications.Notifier
	if redisClient != nil {
		postCache = cache.New(redisClient, time.Duration(cfg.CacheTTLSeconds)*time.Second, logger)
		notifier = notifications.NewNotifier(redisClient)
	}

	return &Server{
		config:         cfg,
		store:          store,
		redis:          redisClient,
		logger:         logger,
		promMiddleware: middleware.InitMetrics("inkwell-api"),
		postService:    service.NewPostService(postRepo, postCache, notifier, logger, opts...),
	}
}

// App builds the fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	app := fiber.New(fiber.Config{
		AppName:      appName,
		BodyLimit:    s.config.BodyLimitBytes,
		ErrorHandler: s.errorHandler,
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

	// Tracing runs before the context middleware so the trace id reaches the logger.
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Browser clients live on another origin and must be able to read responses.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger(s.logger))

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	app.Use(cors.New(corsConfig(s.config)))

	perMinute := s.config.RateLimitPerMinute
	bypass := middleware.RateLimitBypassed(s.config.Env)
	app.Use(limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return perMinute <= 0 || bypass || c.Method() == fiber.MethodOptions
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
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	api := app.Group("/api")
	api.Get("/", s.HealthCheck)

	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/", middleware.RateLimit(middleware.RateLimitConfig{
		Redis:    s.redis,
		Resource: "create_post",
		Limit:    s.config.CreateRateLimitPerMinute,
		Window:   time.Minute,
		Env:      s.config.Env,
		Logger:   s.logger,
	}), s.CreatePost)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	// Anything else under /api is an unknown endpoint, not a missing post.
	api.Use(func(c *fiber.Ctx) error {
		return s.respondError(c, models.NewRouteNotFoundError())
	})
}

// Start serves the API on the configured port until the listener stops.
func (s *Server) Start() error {
	app := s.App()
	s.logger.Info("Server starting",
		slog.String("port", s.config.Port),
		slog.String("api_url", "http://localhost:"+s.config.Port+"/api"),
	)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully stops the HTTP server and closes the store and Redis connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	s.logger.Info("Server shutdown complete")
	return errors.Join(errs...)
}
