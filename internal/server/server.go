package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

// Server bundles dependencies for HTTP handlers.
type Server struct {
	campaigns Campaigns
	prober    ProtocolProber
	assets    AssetLister
	history   CampaignHistory
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAssets enables GET /api/v1/assets.
func WithAssets(assets AssetLister) Option {
	return func(s *Server) {
		s.assets = assets
	}
}

// WithHistory enables GET /api/v1/campaigns.
func WithHistory(history CampaignHistory) Option {
	return func(s *Server) {
		s.history = history
	}
}

// WithLogger sets the logger used for request logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new API server instance.
func NewServer(campaigns Campaigns, prober ProtocolProber, opts ...Option) *Server {
	s := &Server{
		campaigns: campaigns,
		prober:    prober,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns a gin engine with the middleware stack and every route.
func (s *Server) Handler() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLoggingMiddleware(s.logger), SecurityHeadersMiddleware())
	s.RegisterRoutes(router)
	return router
}

// RegisterRoutes attaches handlers to the provided Gin engine.
func (s *Server) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.GET("/status", s.statusHandler)
	v1.POST("/scan/start", s.startHandler)
	v1.POST("/scan/stop", s.stopHandler)
	v1.GET("/scan/results", s.resultsHandler)
	v1.POST("/protocols", s.protocolsHandler)
	v1.GET("/assets", s.assetsHandler)
	v1.GET("/campaigns", s.campaignsHandler)
}

// Run serves the API on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves the API on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("control API listening", "address", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down control API: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
