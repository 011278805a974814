//nolint:revive // Package name 'api' is intentionally generic for the HTTP API layer
package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/93bx/vidsrc-stremio-addon/internal/api/handlers"
	apimw "github.com/93bx/vidsrc-stremio-addon/internal/api/middleware"
	"github.com/93bx/vidsrc-stremio-addon/internal/config"
	"github.com/93bx/vidsrc-stremio-addon/internal/health"
	"github.com/93bx/vidsrc-stremio-addon/internal/metrics"
	"github.com/93bx/vidsrc-stremio-addon/internal/scheduler"
	"github.com/93bx/vidsrc-stremio-addon/internal/streams"
)

// CacheInvalidator removes a resolved entry by content key.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, key string) error
}

// Dependencies are the services the server exposes. Nil members leave
// their routes unregistered.
type Dependencies struct {
	Streams   *streams.Service
	Cache     CacheInvalidator
	Health    *health.Handlers
	Scheduler *scheduler.Scheduler
	Logs      LogsProvider
}

// Server is the addon's HTTP server.
type Server struct {
	echo      *echo.Echo
	cfg       *config.Config
	deps      Dependencies
	logger    zerolog.Logger
	startedAt time.Time
}

// NewServer creates the server and registers all routes.
func NewServer(cfg *config.Config, deps Dependencies, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		cfg:       cfg,
		deps:      deps,
		logger:    logger.With().Str("component", "api").Logger(),
		startedAt: time.Now(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(apimw.SecurityHeaders("/api"))

	// Stremio clients fetch the addon from arbitrary origins.
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogMethod:    true,
		LogError:     true,
		LogRequestID: true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Info()
			if v.Error != nil {
				event = s.logger.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Str("requestId", v.RequestID).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{Level: 5}))
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	if s.deps.Streams != nil {
		streams.NewHandlers(s.deps.Streams).RegisterRoutes(s.echo)
	}

	v1 := s.echo.Group("/api/v1")
	v1.GET("/status", s.getStatus)

	if s.deps.Health != nil {
		s.deps.Health.RegisterRoutes(v1.Group("/health"))
	}
	if s.deps.Logs != nil {
		NewLogsHandlers(s.deps.Logs).RegisterRoutes(v1.Group("/logs"))
	}
	if s.deps.Scheduler != nil {
		handlers.NewSchedulerHandler(s.deps.Scheduler).RegisterRoutes(v1.Group("/tasks"))
	}
	if s.deps.Cache != nil {
		v1.DELETE("/cache/:key", s.invalidateCache)
	}
}

// Start serves on address until Shutdown is called.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("Starting HTTP server")
	if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// StatusResponse describes the running addon.
type StatusResponse struct {
	Version            string    `json:"version"`
	StartTime          time.Time `json:"startTime"`
	Uptime             string    `json:"uptime"`
	Strategies         []string  `json:"strategies"`
	CacheBackend       string    `json:"cacheBackend"`
	SolverConfigured   bool      `json:"solverConfigured"`
	MetadataConfigured bool      `json:"metadataConfigured"`
}

func (s *Server) getStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{
		Version:            config.Version,
		StartTime:          s.startedAt.UTC(),
		Uptime:             time.Since(s.startedAt).Round(time.Second).String(),
		Strategies:         s.cfg.Extraction.Strategies,
		CacheBackend:       s.cfg.Cache.Backend,
		SolverConfigured:   s.cfg.Solver.APIKey != "",
		MetadataConfigured: s.cfg.Metadata.OMDB.APIKey != "",
	})
}

// DELETE /api/v1/cache/:key
func (s *Server) invalidateCache(c echo.Context) error {
	key, err := url.PathUnescape(c.Param("key"))
	if err != nil || key == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid cache key"})
	}
	if err := s.deps.Cache.Invalidate(c.Request().Context(), key); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	s.logger.Info().Str("contentKey", key).Msg("Cache entry invalidated")
	return c.NoContent(http.StatusNoContent)
}
