package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jackzampolin/bookboost/internal/api"
	"github.com/jackzampolin/bookboost/internal/config"
	"github.com/jackzampolin/bookboost/internal/convert"
	"github.com/jackzampolin/bookboost/internal/defra"
	"github.com/jackzampolin/bookboost/internal/events"
	"github.com/jackzampolin/bookboost/internal/home"
	"github.com/jackzampolin/bookboost/internal/jobs"
	"github.com/jackzampolin/bookboost/internal/providers"
	"github.com/jackzampolin/bookboost/internal/server/endpoints"
	"github.com/jackzampolin/bookboost/internal/svcctx"
)

// Server is the BookBoost HTTP server. It owns the job store, object store,
// event bus and pipeline, and the DefraDB container when the defra backend
// is selected.
type Server struct {
	httpServer *http.Server
	configMgr  *config.Manager
	home       *home.Dir
	logger     *slog.Logger
	registry   *providers.Registry

	// publicURL is the address external services call back on.
	publicURL   string
	defraLabels map[string]string

	// set by Init
	defraManager *defra.DockerManager
	defraClient  *defra.Client
	sink         *defra.Sink
	store        jobs.Store
	bus          *events.Bus
	local        *convert.LocalConverter

	// services holds all core services for context enrichment
	services *svcctx.Services

	endpointRegistry *api.Registry

	mu          sync.RWMutex
	running     bool
	initialized bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// ConfigManager provides configuration with hot-reload support (required)
	ConfigManager *config.Manager
	// Home is the bookboost home directory (default: ~/.bookboost)
	Home *home.Dir
	// LLMClients are registered by name next to the configured providers.
	LLMClients map[string]providers.LLMClient
	// DefraLabels are added to the DefraDB container.
	DefraLabels map[string]string
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration. Services are built
// by Init or Start.
func New(cfg Config) (*Server, error) {
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Home == nil {
		h, err := home.New("")
		if err != nil {
			return nil, err
		}
		cfg.Home = h
	}

	registry := providers.NewRegistry()
	registry.SetLogger(cfg.Logger)
	for name, client := range cfg.LLMClients {
		registry.RegisterLLM(name, client)
	}
	registry.Reload(cfg.ConfigManager.Get().ToProviderRegistryConfig())

	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	publicURL := cfg.ConfigManager.Get().Conversion.CallbackBaseURL
	if publicURL == "" {
		publicURL = "http://" + addr
	}

	s := &Server{
		configMgr:   cfg.ConfigManager,
		home:        cfg.Home,
		logger:      cfg.Logger,
		registry:    registry,
		publicURL:   publicURL,
		defraLabels: cfg.DefraLabels,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{DefraManager: s.defraManagerRef}) {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.withServices(mux),
		ReadTimeout:  5 * time.Minute, // manuscript uploads
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start builds the services and serves HTTP until ctx is cancelled or the
// listener fails, then shuts everything down.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.Init(ctx); err != nil {
		s.setNotRunning()
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.Shutdown(context.Background())
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.Shutdown(context.Background())
}

// Init builds the store, object store, bus and pipeline. It is idempotent.
func (s *Server) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	if err := s.home.EnsureExists(); err != nil {
		return err
	}

	svc, err := s.buildServices(ctx)
	if err != nil {
		s.closeBackends(context.Background())
		return err
	}
	s.services = svc
	s.initialized = true
	return nil
}

// Shutdown stops HTTP, drains the event bus and closes the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.mu.Lock()
	s.closeBackends(shutdownCtx)
	s.initialized = false
	s.services = nil
	s.mu.Unlock()

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

// closeBackends releases whatever buildServices created. Callers hold mu.
func (s *Server) closeBackends(ctx context.Context) {
	if s.bus != nil {
		if err := s.bus.Close(ctx); err != nil {
			s.logger.Error("event bus drain incomplete", "error", err)
		}
		s.bus = nil
	}
	if s.local != nil {
		s.local.Wait()
		s.local = nil
	}
	if s.sink != nil {
		s.sink.Stop()
		s.sink = nil
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("job store close error", "error", err)
		}
		s.store = nil
	}
	if s.defraManager != nil {
		s.logger.Info("stopping DefraDB")
		if err := s.defraManager.Stop(ctx); err != nil {
			s.logger.Error("DefraDB stop error", "error", err)
		}
		if err := s.defraManager.Close(); err != nil {
			s.logger.Error("DefraDB manager close error", "error", err)
		}
		s.defraManager = nil
		s.defraClient = nil
	}
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the HTTP handler with service injection applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Services returns the running services, or nil before Init.
func (s *Server) Services() *svcctx.Services {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// defraManagerRef is handed to endpoints, which are built before the
// manager exists.
func (s *Server) defraManagerRef() *defra.DockerManager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defraManager
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc := s.Services(); svc != nil {
			ctx = svcctx.WithServices(ctx, svc)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable until the store and pipeline are ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Services() == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
