package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/inventhq/invent/internal/config"
	"github.com/inventhq/invent/internal/importer"
	"github.com/inventhq/invent/internal/prefs"
	"github.com/inventhq/invent/internal/server"
	"github.com/inventhq/invent/pkg/client"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logging
	closeLog := setupLogging(cfg)
	defer closeLog()

	// Upstream INVENT API
	opts := []client.Option{
		client.WithServer(cfg.InventAPIURL),
		client.WithTimeout(cfg.UpstreamTimeout),
	}
	if cfg.UpstreamRPS > 0 {
		opts = append(opts, client.WithRateLimit(cfg.UpstreamRPS, cfg.UpstreamBurst))
	}
	api := client.New("", opts...)

	deps := server.Deps{API: api, Version: version}

	// Preferences: Redis when configured, memory otherwise
	if cfg.RedisURL != "" {
		rdb, err := prefs.Dial(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		store := prefs.NewRedis(rdb)
		deps.Prefs = store
		deps.Redis = store
		slog.Info("connected to redis")
	} else {
		deps.Prefs = prefs.NewMemory()
		slog.Warn("REDIS_URL not set - page size preferences are kept in memory")
	}

	// Import column headers (optional, hard fail if the file is invalid)
	deps.Mapping = importer.NameMapping
	if cfg.ImportHeadersPath != "" {
		overrides, err := importer.LoadOverrides(cfg.ImportHeadersPath)
		if err != nil {
			slog.Error("failed to load import headers", "error", err)
			os.Exit(1)
		}
		if deps.Mapping, err = importer.NameMapping.WithOverrides(overrides); err != nil {
			slog.Error("invalid import headers", "error", err)
			os.Exit(1)
		}
		slog.Info("import headers loaded", "path", cfg.ImportHeadersPath)
	}

	srv, err := server.New(cfg, deps)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// The daemon starts even when INVENT is down; /ready reports it until
	// a scheduled refresh succeeds.
	refreshCtx, cancelRefresh := context.WithTimeout(ctx, cfg.UpstreamTimeout)
	if err := srv.Refresh(refreshCtx); err != nil {
		slog.Warn("initial reference refresh failed", "error", err)
	}
	cancelRefresh()

	go func() {
		slog.Info("starting server", "port", cfg.Port, "invent", cfg.InventAPIURL, "version", version)
		if err := srv.Start(); err != nil {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}

// setupLogging installs the default logger. With LOG_FILE set, logs also go
// to a rotated file. The returned func closes the file.
func setupLogging(cfg *config.Config) func() {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.LogLevel {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	closeFn := func() {}
	if cfg.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     14, // days
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, lj)
		closeFn = func() { lj.Close() }
	}

	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	slog.SetDefault(slog.New(handler))
	return closeFn
}
