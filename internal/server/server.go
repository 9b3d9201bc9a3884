package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/inventhq/invent/internal/config"
	"github.com/inventhq/invent/internal/handler"
	"github.com/inventhq/invent/internal/importer"
	"github.com/inventhq/invent/internal/middleware"
	"github.com/inventhq/invent/internal/prefs"
	"github.com/inventhq/invent/pkg/client"
)

// Deps are the daemon's connections.
type Deps struct {
	// API is the anonymous INVENT client; sessions derive their clients
	// from it.
	API   *client.Client
	Prefs prefs.Store
	// Redis is checked by /ready; nil when preferences live in memory.
	Redis   handler.Pinger
	Mapping importer.Mapping
	Version string
}

// Server is the HTTP server.
type Server struct {
	cfg         *config.Config
	deps        Deps
	ref         *handler.Reference
	metrics     *middleware.Metrics
	rateLimiter *middleware.RateLimiter
	cron        *cron.Cron
	server      *http.Server
}

// New creates the server and schedules the reference data refresh. The
// first refresh is left to the caller, see Refresh.
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Prefs == nil {
		deps.Prefs = prefs.NewMemory()
	}
	if deps.Mapping == nil {
		deps.Mapping = importer.NameMapping
	}

	rlConfig := middleware.DefaultRateLimitConfig()
	rlConfig.DefaultRatePerSecond = cfg.RateLimitPerSecond
	rlConfig.DefaultBurst = cfg.RateLimitBurst
	rlConfig.UnauthRatePerSecond = cfg.UnauthRateLimitPerSecond
	rlConfig.UnauthBurst = cfg.UnauthRateLimitBurst
	rlConfig.WriteRatePerSecond = cfg.WriteRateLimitPerSecond
	rlConfig.WriteBurst = cfg.WriteRateLimitBurst

	s := &Server{
		cfg:         cfg,
		deps:        deps,
		ref:         handler.NewReference(deps.API, slog.Default()),
		metrics:     middleware.NewMetrics(),
		rateLimiter: middleware.NewRateLimiter(rlConfig),
		cron:        cron.New(),
	}

	if _, err := s.cron.AddFunc(cfg.StructureRefreshCron, s.scheduledRefresh); err != nil {
		s.rateLimiter.Stop()
		return nil, fmt.Errorf("invalid STRUCTURE_REFRESH_CRON %q: %w", cfg.StructureRefreshCron, err)
	}
	s.cron.Start()

	s.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Refresh reloads the shared reference data and counts the outcome.
func (s *Server) Refresh(ctx context.Context) error {
	err := s.ref.Refresh(ctx)
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.StructureRefreshesTotal.WithLabelValues(result).Inc()
	return err
}

func (s *Server) scheduledRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.UpstreamTimeout)
	defer cancel()
	if err := s.Refresh(ctx); err != nil {
		slog.Warn("scheduled reference refresh failed; serving previous data", "error", err)
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Serve starts the HTTP server on the given listener.
func (s *Server) Serve(l net.Listener) error {
	return s.server.Serve(l)
}

// Shutdown stops the refresh schedule and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	cronDone := s.cron.Stop()
	s.rateLimiter.Stop()

	err := s.server.Shutdown(ctx)
	select {
	case <-cronDone.Done():
	case <-ctx.Done():
	}
	return err
}
