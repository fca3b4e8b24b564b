// Package server exposes the knowledge base and the extraction pipeline
// over HTTP: an Echo router with health and metrics endpoints, node CRUD,
// semantic search, and extraction run control, with graceful shutdown.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lifebank/internal/config"
	"github.com/fyrsmithlabs/lifebank/internal/knowledge"
	"github.com/fyrsmithlabs/lifebank/internal/orchestrator"
	"github.com/fyrsmithlabs/lifebank/internal/taxonomy"
)

// Server is the HTTP front of the daemon.
type Server struct {
	cfg      config.ServerConfig
	echo     *echo.Echo
	store    *knowledge.Store
	runner   *orchestrator.Orchestrator
	registry *taxonomy.Registry
	logger   *zap.Logger
}

// New creates a server over the given store, orchestrator and registry.
// The orchestrator may be nil; extraction endpoints then return 503.
func New(cfg config.ServerConfig, store *knowledge.Store, runner *orchestrator.Orchestrator, registry *taxonomy.Registry, logger *zap.Logger) (*Server, error) {
	if store == nil || registry == nil {
		return nil, fmt.Errorf("store and registry are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		cfg:      cfg,
		echo:     e,
		store:    store,
		runner:   runner,
		registry: registry,
		logger:   logger,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/nodes", s.handleListNodes)
	v1.POST("/nodes", s.handleCreateNode)
	v1.GET("/nodes/:id", s.handleGetNode)
	v1.DELETE("/nodes/:id", s.handleDeleteNode)
	v1.GET("/nodes/:id/children", s.handleNodeChildren)
	v1.GET("/search", s.handleSearch)
	v1.GET("/taxonomy/:path", s.handleTaxonomyChildren)
	v1.POST("/extract/:day", s.handleExtract)
	v1.GET("/extract/:day", s.handleExtractStatus)
	v1.POST("/extract/:day/cancel", s.handleExtractCancel)
}

// Start runs the server until the context is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		defer cancel()
		s.logger.Info("shutting down HTTP server")
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return http.ErrServerClosed
	}
}
