// Package http provides the diagnostic HTTP server for veritls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/veritls/veritls/internal/config"
	"github.com/veritls/veritls/internal/hostname"
	"github.com/veritls/veritls/internal/observability"
	"github.com/veritls/veritls/internal/probe"
	"github.com/veritls/veritls/internal/verify"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid race conditions.
var ginModeOnce sync.Once

// Server is the diagnostic HTTP server. It exposes offline
// certificate verification, live endpoint probing, health, and
// metrics endpoints.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	logger     observability.Logger
	metrics    *observability.Metrics
	tracer     *observability.Tracer
	verifier   verify.Verifier
	prober     *probe.Prober
	normalize  hostname.NormalizeFunc
	cfg        config.ServerConfig
	metricsCfg config.MetricsConfig
	mu         sync.Mutex
	running    bool
}

// ServerOption is a functional option for the server.
type ServerOption func(*Server)

// WithServerLogger sets the logger.
func WithServerLogger(logger observability.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithServerMetrics sets the HTTP metrics and enables exposition.
func WithServerMetrics(metrics *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithServerTracer sets the tracer used for request spans.
func WithServerTracer(tracer *observability.Tracer) ServerOption {
	return func(s *Server) {
		s.tracer = tracer
	}
}

// WithServerVerifier sets the verifier backing /v1/verify.
func WithServerVerifier(verifier verify.Verifier) ServerOption {
	return func(s *Server) {
		s.verifier = verifier
	}
}

// WithServerProber sets the prober backing /v1/probe.
func WithServerProber(prober *probe.Prober) ServerOption {
	return func(s *Server) {
		s.prober = prober
	}
}

// WithServerNormalizer sets the hostname normalization policy.
func WithServerNormalizer(normalize hostname.NormalizeFunc) ServerOption {
	return func(s *Server) {
		s.normalize = normalize
	}
}

// NewServer creates a new diagnostic server.
func NewServer(cfg config.ServerConfig, metricsCfg config.MetricsConfig, opts ...ServerOption) *Server {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	s := &Server{
		engine:     gin.New(),
		logger:     observability.NopLogger(),
		verifier:   verify.NewVerifier(),
		prober:     probe.NewProber(),
		normalize:  hostname.Normalize,
		cfg:        cfg,
		metricsCfg: metricsCfg,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware installs the middleware chain.
func (s *Server) setupMiddleware() {
	s.engine.Use(gin.Recovery())
	s.engine.Use(RequestID())
	s.engine.Use(RequestLogger(s.logger))

	if s.metrics != nil {
		s.engine.Use(RequestMetrics(s.metrics))
	}

	if s.tracer != nil {
		s.engine.Use(Tracing(s.tracer))
	}

	if rl := s.cfg.RateLimit; rl != nil && rl.Enabled {
		s.engine.Use(RateLimit(NewRateLimiter(rl.RequestsPerSecond, rl.Burst), s.logger))
	}
}

// setupRoutes registers all routes.
func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.handleHealthz)

	if s.metrics != nil && s.metricsCfg.Enabled {
		path := s.metricsCfg.Path
		if path == "" {
			path = "/metrics"
		}
		s.engine.GET(path, gin.WrapH(s.metrics.Handler()))
	}

	v1 := s.engine.Group("/v1")
	v1.POST("/verify", s.handleVerify)
	v1.POST("/probe", s.handleProbe)
}

// Engine returns the underlying Gin engine, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Address, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout.Duration(),
		WriteTimeout: s.cfg.WriteTimeout.Duration(),
		IdleTimeout:  s.cfg.IdleTimeout.Duration(),
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("starting diagnostic HTTP server",
		observability.String("address", addr),
		observability.Duration("readTimeout", s.cfg.ReadTimeout.Duration()),
		observability.Duration("writeTimeout", s.cfg.WriteTimeout.Duration()),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.httpServer == nil {
		return nil
	}
	s.running = false

	s.logger.Info("shutting down diagnostic HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// ShutdownWithTimeout shuts down with a bounded grace period.
func (s *Server) ShutdownWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Shutdown(ctx)
}
