package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jackzampolin/slate/internal/analysis"
	"github.com/jackzampolin/slate/internal/api"
	"github.com/jackzampolin/slate/internal/config"
	"github.com/jackzampolin/slate/internal/gateway"
	"github.com/jackzampolin/slate/internal/home"
	"github.com/jackzampolin/slate/internal/jobs"
	"github.com/jackzampolin/slate/internal/providers"
	"github.com/jackzampolin/slate/internal/server/endpoints"
	"github.com/jackzampolin/slate/internal/svcctx"
)

// Server is the main Slate HTTP server. It owns the job store, the provider
// registry and the runner that executes analyses in the background.
type Server struct {
	httpServer *http.Server
	configMgr  *config.Manager
	staticCfg  *config.Config
	home       *home.Dir
	logger     *slog.Logger

	registry *providers.Registry
	store    jobs.Store
	gateway  *gateway.Gateway
	runner   *jobs.Runner

	// closeStore is set when the server opened the store itself.
	closeStore func() error
	unlockHome func() error
	cancelJobs context.CancelFunc

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu       sync.RWMutex
	services *svcctx.Services
	running  bool
}

// Config holds server configuration.
type Config struct {
	// Host and Port override server.host and server.port when set.
	Host string
	Port string
	// ConfigManager provides configuration with hot-reload support.
	// Nil uses the defaults.
	ConfigManager *config.Manager
	// Home is the slate home directory. It holds the SQLite job database
	// and saved reports.
	Home *home.Dir
	// Store replaces the configured job store. The server does not close
	// an injected store.
	Store jobs.Store
	// Registry replaces the provider registry built from config.
	Registry *providers.Registry
	// StreamInterval is the websocket poll period.
	StreamInterval time.Duration
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration. Call Init (or
// Start, which calls it) before serving requests that need the store.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		configMgr: cfg.ConfigManager,
		home:      cfg.Home,
		logger:    cfg.Logger,
		store:     cfg.Store,
		registry:  cfg.Registry,
	}
	if s.configMgr == nil {
		s.staticCfg = config.DefaultConfig()
	}
	current := s.config()

	if s.registry == nil {
		s.registry = providers.NewRegistryFromConfig(current.ToProviderRegistryConfig())
		s.registry.SetLogger(cfg.Logger)

		// Only a registry built from config follows config changes.
		if s.configMgr != nil {
			s.configMgr.OnChange(func(c *config.Config) {
				s.registry.Reload(c.ToProviderRegistryConfig())
				cfg.Logger.Info("provider registry reloaded from config")
			})
		}
	}

	host, port := current.Server.Host, strconv.Itoa(current.Server.Port)
	if cfg.Host != "" {
		host = cfg.Host
	}
	if cfg.Port != "" {
		port = cfg.Port
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{StreamInterval: cfg.StreamInterval}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(host, port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// config returns the current configuration.
func (s *Server) config() *config.Config {
	if s.configMgr != nil {
		return s.configMgr.Get()
	}
	return s.staticCfg
}

// Init opens the job store and starts the analysis runner. It is safe to
// call once; Start calls it when needed.
func (s *Server) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.services != nil {
		return nil
	}

	cfg := s.config()
	if s.store == nil {
		if err := s.openStore(ctx, cfg); err != nil {
			return err
		}
	}

	gw, err := gateway.New(gateway.Config{
		Clients: s.registry,
		Retry:   cfg.RetryPolicy(),
		Logger:  s.logger,
	})
	if err != nil {
		s.releaseStore()
		return fmt.Errorf("failed to create gateway: %w", err)
	}
	s.gateway = gw
	if s.configMgr != nil {
		s.configMgr.OnChange(func(c *config.Config) {
			gw.SetRetryPolicy(c.RetryPolicy())
		})
	}

	orch, err := analysis.New(analysis.Config{
		Store:    s.store,
		Analyzer: gw,
		Settings: func() analysis.Settings { return s.config().AnalysisSettings() },
		Logger:   s.logger,
	})
	if err != nil {
		s.releaseStore()
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	// Jobs outlive requests; they stop only at shutdown.
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelJobs = cancel
	s.runner = jobs.NewRunner(jobCtx, jobs.RunnerConfig{
		Store:     s.store,
		Processor: orch,
		Logger:    s.logger,
	})

	s.services = &svcctx.Services{
		Store:    s.store,
		Runner:   s.runner,
		Registry: s.registry,
		Logger:   s.logger,
		Home:     s.home,
		Config:   s.config,
	}
	return nil
}

// openStore opens the configured store. SQLite databases are guarded by
// the home directory lock so two servers never share one file.
func (s *Server) openStore(ctx context.Context, cfg *config.Config) error {
	if cfg.Storage.Backend == "memory" {
		store := jobs.NewMemoryStore()
		s.store = store
		s.closeStore = store.Close
		s.logger.Info("using in-memory job store")
		return nil
	}

	path := cfg.Storage.Path
	if path == "" {
		if s.home == nil {
			return errors.New("sqlite storage needs storage.path or a home directory")
		}
		if err := s.home.EnsureExists(); err != nil {
			return err
		}
		path = s.home.JobsDBPath()
	}
	if s.home != nil {
		unlock, err := s.home.Lock()
		if err != nil {
			return err
		}
		s.unlockHome = unlock
	}

	store, err := jobs.OpenSQLite(ctx, path)
	if err != nil {
		s.releaseStore()
		return fmt.Errorf("failed to open job store: %w", err)
	}
	s.store = store
	s.closeStore = store.Close
	s.logger.Info("job store ready", "path", path)
	return nil
}

func (s *Server) releaseStore() {
	if s.closeStore != nil {
		if err := s.closeStore(); err != nil {
			s.logger.Error("job store close error", "error", err)
		}
		s.closeStore = nil
		s.store = nil
	}
	if s.unlockHome != nil {
		if err := s.unlockHome(); err != nil {
			s.logger.Error("home unlock error", "error", err)
		}
		s.unlockHome = nil
	}
}

// Start initializes the server and serves HTTP.
// It blocks until the context is cancelled or an error occurs.
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

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown stops the HTTP server, then the runner and the store.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.Close()
	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

// Close cancels running analyses, waits for them to return and releases
// the store. Interrupted jobs are left as stored.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelJobs != nil {
		s.cancelJobs()
		s.runner.Wait()
		s.cancelJobs = nil
	}
	s.releaseStore()
	s.services = nil
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

// Handler returns the HTTP handler with services attached, for tests and
// embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Store returns the job store.
// Returns nil before Init.
func (s *Server) Store() jobs.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// Runner returns the analysis runner.
// Returns nil before Init.
func (s *Server) Runner() *jobs.Runner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runner
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

func (s *Server) currentServices() *svcctx.Services {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if services := s.currentServices(); services != nil {
			ctx = svcctx.WithServices(ctx, services)
		} else {
			// Config and registry are usable before Init.
			ctx = svcctx.WithServices(ctx, &svcctx.Services{
				Registry: s.registry,
				Logger:   s.logger,
				Home:     s.home,
				Config:   s.config,
			})
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the store or runner aren't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svcctx.StoreFrom(r.Context()) == nil || svcctx.RunnerFrom(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
