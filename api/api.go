package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/papercomputeco/raggadon/pkg/service"
	"github.com/papercomputeco/raggadon/pkg/usage"
)

// MemoryService is the set of operations the API exposes.
type MemoryService interface {
	Save(ctx context.Context, req service.SaveRequest) (*service.SaveResult, error)
	SaveBatch(ctx context.Context, req service.SaveBatchRequest) (*service.SaveBatchResult, error)
	Search(ctx context.Context, req service.SearchRequest) (*service.SearchResult, error)
	Stats(ctx context.Context, project string) (*service.StatsResult, error)
	ProjectUsage(ctx context.Context, project string) (*usage.ProjectStats, error)
	Usage(ctx context.Context) (*usage.Overview, error)
}

var _ MemoryService = (*service.Service)(nil)

// Server is the API server of the memory service.
type Server struct {
	config  Config
	service MemoryService
	logger  *slog.Logger
	app     *fiber.App
}

// NewServer creates a new API server around svc.
func NewServer(config Config, svc MemoryService, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		UnescapePath:          true,
		ErrorHandler:          errorHandler,
	})

	s := &Server{
		config:  config,
		service: svc,
		logger:  logger,
		app:     app,
	}

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(s.logRequests)

	app.Get("/health", s.handleHealth)
	app.Post("/save", s.handleSave)
	app.Post("/save/batch", s.handleSaveBatch)
	app.Get("/search", s.handleSearch)
	app.Get("/project/:project/stats", s.handleStats)
	app.Get("/project/:project/usage", s.handleProjectUsage)
	app.Get("/usage", s.handleUsage)

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("request handled",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return err
}
