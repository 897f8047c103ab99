package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	api "github.com/chipflow/command-proxy/internal/api/http"
	"github.com/chipflow/command-proxy/internal/api/middleware"
	"github.com/chipflow/command-proxy/internal/backend"
	"github.com/chipflow/command-proxy/internal/domain/policy"
	"github.com/chipflow/command-proxy/internal/infrastructure/config"
	"github.com/chipflow/command-proxy/internal/infrastructure/logging"
	"github.com/chipflow/command-proxy/internal/infrastructure/monitoring"
)

// Server wraps the proxy and admin HTTP servers and their dependencies
type Server struct {
	proxy   *http.Server
	admin   *http.Server
	lists   *policy.AllowLists
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance with a logger built from cfg
func NewServer(cfg *config.Config) (*Server, error) {
	logCfg := logging.DefaultConfig()
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	logCfg.Level = cfg.Logging.Level
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return New(cfg, logger)
}

// New creates a server using the given logger
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	lists, err := cfg.AllowLists()
	if err != nil {
		return nil, err
	}

	spec := lists.Spec()
	logger.Info("Initializing command proxy",
		zap.String("listen", cfg.ListenAddr()),
		zap.String("backend", cfg.BackendAddr()),
		zap.Strings("allowed_commands", spec.Commands),
		zap.Strings("url_commands", spec.URLCommands),
		zap.Strings("allowed_origins", spec.Origins),
		zap.Strings("allowed_url_domains", spec.URLDomains),
		zap.Bool("strict_origin_match", spec.StrictOriginMatch),
		zap.String("policy_file", cfg.Security.PolicyFile),
	)

	metrics := monitoring.NewMetrics()

	client := backend.NewClient(backend.Config{
		Addr:    cfg.BackendAddr(),
		Timeout: cfg.Backend.Timeout,
	})

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(metrics))
	router.Use(logging.Middleware(logger))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
			zap.Bool("global", cfg.RateLimit.Global),
		)
		rl := middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}
		if cfg.RateLimit.Global {
			router.Use(middleware.GlobalRateLimit(rl))
		} else {
			router.Use(middleware.RateLimit(rl))
		}
	}
	cors := middleware.DefaultCORSConfig(lists)
	cors.OnPreflight = metrics.RecordPreflight
	router.Use(middleware.CORS(cors))

	handlers := api.NewHandlers(
		policy.NewValidator(lists),
		client,
		logger,
		metrics,
		api.Options{MaxBodyBytes: cfg.Server.MaxBodyBytes},
	)
	api.RegisterRoutes(router, handlers)

	s := &Server{
		proxy: &http.Server{
			Addr:        cfg.ListenAddr(),
			Handler:     router,
			ReadTimeout: cfg.Server.ReadTimeout,
		},
		lists:   lists,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}

	if cfg.Admin.Enabled {
		adminRouter := gin.New()
		adminRouter.Use(gin.Recovery())
		api.RegisterAdminRoutes(adminRouter, api.NewAdminHandlers(cfg.BackendAddr(), lists, metrics))
		s.admin = &http.Server{
			Addr:    cfg.Admin.Addr,
			Handler: adminRouter,
		}
	}

	logger.Info("Server initialized successfully")

	return s, nil
}

// Handler returns the proxy handler
func (s *Server) Handler() http.Handler {
	return s.proxy.Handler
}

// AdminHandler returns the admin handler, or nil when the admin listener is disabled
func (s *Server) AdminHandler() http.Handler {
	if s.admin == nil {
		return nil
	}
	return s.admin.Handler
}

// Metrics returns the server's metrics collector
func (s *Server) Metrics() *monitoring.Metrics {
	return s.metrics
}

// Run starts the HTTP servers and blocks until one of them stops
func (s *Server) Run() error {
	servers := []*http.Server{s.proxy}
	if s.admin != nil {
		servers = append(servers, s.admin)
	}

	errChan := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			s.logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
			err := srv.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				err = nil
			}
			if err != nil {
				err = fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			errChan <- err
		}(srv)
	}

	return <-errChan
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.proxy.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down proxy: %w", err))
	}
	if s.admin != nil {
		if err := s.admin.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down admin: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close gracefully shuts down the server within the configured timeout
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	ctx := context.Background()
	if timeout := s.config.Server.ShutdownTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := s.Shutdown(ctx)
	if err != nil {
		s.logger.Error("Shutdown incomplete", zap.Error(err))
	}

	// Sync logger before exit
	_ = s.logger.Sync()

	return err
}
