package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/rohankatakam/repolens/internal/aggregator"
	"github.com/rohankatakam/repolens/internal/logging"
	"github.com/rohankatakam/repolens/internal/models"
)

// Service is the analysis surface the HTTP handlers depend on.
// *aggregator.CachedService implements it.
type Service interface {
	Analyze(ctx context.Context, credential, input string) (*models.AnalysisReport, aggregator.CacheStatus, error)
	CodeFrequency(ctx context.Context, credential, input string) (models.CodeFrequencyResult, aggregator.CacheStatus, error)
	UserRepos(ctx context.Context, credential string) ([]models.UserRepo, error)
	CacheSizes() (reports, stats int)
}

var _ Service = (*aggregator.CachedService)(nil)

// Config controls the HTTP server
type Config struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// RequestTimeout bounds each analysis; zero disables the bound
	RequestTimeout time.Duration
	AllowOrigins   []string
}

// DefaultConfig returns the server defaults
func DefaultConfig() Config {
	return Config{
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   90 * time.Second,
		RequestTimeout: 60 * time.Second,
	}
}

// Server exposes the analysis service over HTTP
type Server struct {
	app     *fiber.App
	handler *Handler
	logger  *slog.Logger
}

// NewServer builds the fiber app and registers routes
func NewServer(svc Service, cfg Config) *Server {
	logger := logging.Component("api")

	app := fiber.New(fiber.Config{
		AppName:      "RepoLens API",
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: errorHandler(logger),
	})

	app.Use(recoverer.New())
	app.Use(requestLogger(logger))
	if len(cfg.AllowOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.AllowOrigins,
			ExposeHeaders: []string{HeaderCache, HeaderCacheAge},
		}))
	}

	h := NewHandler(svc, cfg.RequestTimeout)
	SetupRoutes(app, h)

	return &Server{app: app, handler: h, logger: logger}
}

// App returns the underlying fiber app (tests use app.Test)
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving on addr until Shutdown
func (s *Server) Listen(addr string) error {
	s.logger.Info("api listening", "addr", addr)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// SetupRoutes registers the API routes
func SetupRoutes(app *fiber.App, h *Handler) {
	app.Get("/health", h.Health)

	api := app.Group("/api")
	api.Post("/repo", h.AnalyzeRepo)
	api.Post("/repo/stats", h.RepoStats)
	api.Get("/user/repos", h.UserRepos)
}

func requestLogger(logger *slog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Debug("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration_ms", time.Since(start).Milliseconds())
		return err
	}
}

// errorHandler renders errors that escaped a handler (routing misses,
// body limits, panics turned into errors by the recover middleware)
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"

		if fe, ok := err.(*fiber.Error); ok {
			code = fe.Code
			message = fe.Message
		} else {
			logger.Error("unhandled error", "path", c.Path(), "error", err)
		}

		return c.Status(code).JSON(ErrorResponse{Error: message})
	}
}
