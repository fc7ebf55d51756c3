package api

import (
	"errors"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/health"
	"github.com/foliodocs/folio/pkg/vector"
)

// Server is the API server for querying the folio index.
type Server struct {
	config  Config
	store   vector.Store
	checker *health.Checker
	logger  *zap.Logger
	app     *fiber.App
}

// NewServer creates a new API server.
// The store is injected to allow sharing with other components
// (e.g., an ingestion pipeline running in the same process).
func NewServer(config Config, store vector.Store, logger *zap.Logger) (*Server, error) {
	if store == nil {
		return nil, errors.New("vector store is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	checker, err := health.NewChecker(&health.Config{
		Store:    store,
		Provider: config.Provider,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:  config,
		store:   store,
		checker: checker,
		logger:  logger,
		app:     app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/health", s.handleHealth)
	app.Get("/v1/search", s.handleSearch)
	app.Post("/v1/ask", s.handleAsk)
	app.Get("/v1/sessions", s.handleListSessions)
	app.Get("/v1/sessions/:id", s.handleGetSession)
	app.Delete("/v1/sessions/:id", s.handleClearSession)

	if config.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCP))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
		zap.Bool("mcp", s.config.MCP != nil),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
