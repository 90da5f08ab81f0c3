package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/mcfetch/internal/domain"
	"github.com/vertextoedge/mcfetch/internal/domain/event"
	"github.com/vertextoedge/mcfetch/internal/port"
	"github.com/vertextoedge/mcfetch/internal/service/downloader"
	"github.com/vertextoedge/mcfetch/internal/service/gate"
	"github.com/vertextoedge/mcfetch/internal/service/resolver"
)

// Downloader is the download capability the API exposes
type Downloader interface {
	Fetch(ctx context.Context, req downloader.Request) (*domain.DownloadResult, error)
	FetchAll(ctx context.Context, reqs []downloader.Request) ([]*domain.DownloadResult, error)
	Stats() map[string]gate.PoolStats
}

// VersionResolver is the version lookup capability the API exposes
type VersionResolver interface {
	GetVersions(ctx context.Context, loaderID, mcVersion string) ([]domain.LoaderVersion, error)
	Resolve(ctx context.Context, loaderID, mcVersion, constraint string) (domain.LoaderVersion, error)
	Stats() resolver.Stats
}

// Config contains HTTP server configuration
type Config struct {
	BindAddr      string
	AdminUsername string
	AdminPassword string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		BindAddr:     "127.0.0.1:8080",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
}

// Server represents the HTTP API server
type Server struct {
	config          *Config
	store           port.Store
	logger          *zap.Logger
	server          *http.Server
	versionHandler  *VersionHandler
	downloadHandler *DownloadHandler
	debugHandler    *DebugHandler
}

// New creates a new HTTP server. store and metrics may be nil.
func New(
	cfg *Config,
	dl Downloader,
	versions VersionResolver,
	store port.Store,
	metrics *event.MetricsHandler,
	logger *zap.Logger,
) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Server{
		config: cfg,
		store:  store,
		logger: logger,
	}

	s.versionHandler = NewVersionHandler(versions, logger)
	s.downloadHandler = NewDownloadHandler(dl, logger)
	s.debugHandler = NewDebugHandler(dl, versions, store, metrics, logger)

	// Mutating and diagnostic routes sit behind basic auth when credentials are set
	protect := func(h http.HandlerFunc) http.HandlerFunc { return h }
	if cfg.AdminUsername != "" {
		protect = BasicAuthMiddleware(cfg.AdminUsername, cfg.AdminPassword, logger)
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Version lookups
	mux.HandleFunc("/versions", s.versionHandler.HandleList)
	mux.HandleFunc("/versions/latest", s.versionHandler.HandleLatest)

	// Downloads
	mux.HandleFunc("/downloads", protect(s.downloadHandler.HandleDownload))

	// Debug endpoints
	mux.HandleFunc("/debug/stats", protect(s.debugHandler.HandleStats))

	s.server = &http.Server{
		Addr:         cfg.BindAddr,
		Handler:      LoggingMiddleware(logger)(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.store != nil {
		if err := s.store.Ping(); err != nil {
			s.logger.Error("health check failed", zap.Error(err))
			http.Error(w, "Database connection failed", http.StatusServiceUnavailable)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
