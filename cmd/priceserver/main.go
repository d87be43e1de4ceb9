package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rekat/price-server/api"
	"github.com/rekat/price-server/config"
	"github.com/rekat/price-server/extractor"
	"github.com/rekat/price-server/fetcher"
	"github.com/rekat/price-server/observability"
	"github.com/rekat/price-server/target"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)

	// ── 3. Resolve the upstream target ──────────────────────────────
	tg, err := target.Lookup(cfg.Fetcher.Target)
	if err != nil {
		slog.Error("invalid target", "error", err)
		os.Exit(1)
	}
	slog.Info("price server starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"target", tg.Name,
		"extract", tg.Mode,
		"chromeTLS", cfg.Fetcher.ChromeTLS,
	)

	// ── 4. Fetcher + extractor pairing ──────────────────────────────
	var opts []fetcher.Option
	if cfg.Fetcher.ChromeTLS {
		opts = append(opts, fetcher.WithChromeTLS())
	}
	f, err := fetcher.New(tg, opts...)
	if err != nil {
		slog.Error("failed to initialise fetcher", "error", err)
		os.Exit(1)
	}
	ex, err := extractor.New(tg)
	if err != nil {
		slog.Error("failed to initialise extractor", "error", err)
		os.Exit(1)
	}

	// ── 5. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(cfg.Server, f, ex, observability.NewMetrics())

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// In-flight lookups get their full upstream timeout.
	ctx, cancel := context.WithTimeout(context.Background(), tg.Timeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("price server stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
