// Package http provides the HTTP server of m3udash.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/m3udash/internal/config"
	"github.com/jmylchreest/m3udash/internal/http/handlers"
	"github.com/jmylchreest/m3udash/internal/http/middleware"
	"github.com/jmylchreest/m3udash/internal/metrics"
)

// Paths served outside the API handlers.
const (
	metricsPath = "/metrics"
	livezPath   = "/livez"
	healthPath  = "/health"
)

// defaultIdleTimeout is the keep-alive idle timeout.
const defaultIdleTimeout = 120 * time.Second

// Dependencies are the components the server routes to.
type Dependencies struct {
	Relay      handlers.Relayer
	Translator handlers.Translator
	Shares     handlers.ShareStore
	// StorageDir is checked by the health endpoint.
	StorageDir string
	Metrics    *metrics.Metrics
}

// Server represents the HTTP server.
type Server struct {
	config     config.ServerConfig
	router     *chi.Mux
	api        huma.API
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with the given configuration and
// registers every route. The version parameter is used in the OpenAPI
// document and the health response.
func NewServer(cfg config.ServerConfig, deps Dependencies, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = "dev"
	}

	router := chi.NewRouter()

	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestID)
	router.Use(middleware.NewLoggingMiddleware(logger, livezPath, healthPath, metricsPath))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg.CORSOrigins...))
	router.Use(middleware.SkipCompressionFor(chimiddleware.Compress(5), metricsPath))

	humaConfig := huma.DefaultConfig("m3udash API", version)
	humaConfig.Info.Description = "M3U relay, Xtream Codes translation and playlist sharing"
	api := humachi.New(router, humaConfig)

	s := &Server{
		config: cfg,
		router: router,
		api:    api,
		logger: logger,
		httpServer: &http.Server{
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  defaultIdleTimeout,
		},
	}
	s.registerRoutes(deps, version)
	return s
}

func (s *Server) registerRoutes(deps Dependencies, version string) {
	handlers.NewHealthHandler(version).WithStorageDir(deps.StorageDir).Register(s.api)
	handlers.NewInspectHandler().Register(s.api)

	handlers.NewPlaylistHandler(deps.Relay, deps.Translator).WithLogger(s.logger).RegisterRoutes(s.router)
	handlers.NewShareHandler(deps.Shares, s.config.PublicBaseURL).WithLogger(s.logger).RegisterRoutes(s.router)

	s.router.Method(http.MethodGet, metricsPath, deps.Metrics.Handler())
}

// Router returns the Chi router for registering additional routes.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting HTTP server",
		slog.String("address", ln.Addr().String()),
	)
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting at most the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server",
		slog.Duration("timeout", s.config.ShutdownTimeout),
	)

	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
// A listen failure is returned immediately.
func (s *Server) ListenAndServe(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.Start)
	g.Go(func() error {
		<-gctx.Done()
		// Shutdown gets a fresh context: ctx is already done here.
		return s.Shutdown(context.WithoutCancel(gctx))
	})
	return g.Wait()
}
