package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/vlookup/internal/config"
	"github.com/JonMunkholm/vlookup/internal/core"
	"github.com/JonMunkholm/vlookup/internal/logging"
	"github.com/JonMunkholm/vlookup/internal/suggest"
	"github.com/JonMunkholm/vlookup/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	var suggester core.Suggester
	if cfg.Suggest.Enabled() {
		suggester = suggest.NewClient(suggest.Config{
			URL:     cfg.Suggest.URL,
			APIKey:  cfg.Suggest.APIKey,
			Model:   cfg.Suggest.Model,
			Timeout: cfg.Suggest.Timeout,
		}, nil)
		slog.Info("column suggestions enabled", "model", cfg.Suggest.Model)
	} else {
		slog.Info("column suggestions disabled; set SUGGEST_API_KEY to enable")
	}

	service := core.NewService(core.Config{
		SessionTTL:          cfg.Session.TTL,
		SweepInterval:       cfg.Session.SweepInterval,
		SampleRows:          cfg.Suggest.SampleRows,
		MaxConcurrentParses: cfg.Upload.MaxConcurrent,
		MaxParseWait:        cfg.Upload.MaxWaitTime,
	}, suggester)

	server := web.NewServer(cfg, service)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartSessionSweeper(jobCtx)

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let in-flight parses finish before closing connections
		if active := service.Limiter().ActiveCount(); active > 0 {
			slog.Info("waiting for parses to complete", "active", active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("parses did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server failed", "error", err)
		cancelJobs()
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}
