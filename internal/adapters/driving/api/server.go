// Package api exposes the query engine and corpus over HTTP using gin.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 30 * time.Second

// Ports holds the driving ports the API serves.
type Ports struct {
	Engine driving.Engine
	Ingest driving.IngestService
	Corpus driving.CorpusService
}

// Validate returns an error if a required port is missing.
func (p *Ports) Validate() error {
	if p == nil {
		return errors.New("ports cannot be nil")
	}
	if p.Engine == nil {
		return errors.New("engine port is required")
	}
	if p.Ingest == nil {
		return errors.New("ingest port is required")
	}
	if p.Corpus == nil {
		return errors.New("corpus port is required")
	}
	return nil
}

// Config holds server options.
type Config struct {
	// Addr is the listen address.
	Addr string

	// APIKey, when non-empty, must be sent in the X-API-Key header.
	APIKey string

	// RateLimit is the sustained requests per second per client IP.
	// Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the bucket size per client IP.
	RateBurst int

	// ShutdownTimeout bounds graceful shutdown (default 30s).
	ShutdownTimeout time.Duration
}

// Server is the HTTP API.
type Server struct {
	ports  *Ports
	cfg    Config
	router *gin.Engine
}

// NewServer builds the router.
func NewServer(ports *Ports, cfg Config) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ports: %w", err)
	}
	if cfg.Addr == "" {
		cfg.Addr = domain.DefaultServerAddr
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{ports: ports, cfg: cfg, router: gin.New()}
	s.routes()
	return s, nil
}

// Handler returns the router for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(requestID(), requestLogger(), gin.Recovery())
	if s.cfg.RateLimit > 0 {
		r.Use(newClientLimiter(s.cfg.RateLimit, s.cfg.RateBurst).middleware())
	}

	r.GET("/", s.handleRoot)
	r.GET("/ping", s.handlePing)
	r.GET("/health", s.handleHealth)

	protected := r.Group("/", requireAPIKey(s.cfg.APIKey))
	protected.POST("/query", s.handleQuery)
	protected.GET("/categories", s.handleCategories)
	protected.GET("/documents", s.handleDocuments)
	protected.POST("/ingest", s.handleIngest)
	protected.POST("/clear", s.handleClear)
	protected.POST("/upload", s.handleUpload)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cfg.APIKey != "" {
		logger.Info("API key protection is enabled")
	} else {
		logger.Info("API key protection is disabled (no API key configured)")
	}
	logger.Info("HTTP API listening on %s", ln.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP API...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
