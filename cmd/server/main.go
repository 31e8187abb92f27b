package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baxromumarov/page-analyzer/internal/api"
	"github.com/baxromumarov/page-analyzer/internal/config"
	"github.com/baxromumarov/page-analyzer/internal/core"
	"github.com/baxromumarov/page-analyzer/internal/httpx"
	"github.com/baxromumarov/page-analyzer/internal/store"
)

func main() {
	cfg := config.Load()

	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbStore, err := store.NewStore(cfg.Database.URL, cfg.Database.MaxOpenConns)
	if err != nil {
		slog.Error("failed to connect to store", "error", err)
		os.Exit(1)
	}
	defer dbStore.Close()

	if err := dbStore.RunMigrations(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	fetcher := httpx.NewCollyFetcher(cfg.Check.UserAgent, httpx.WithTimeout(cfg.Check.Timeout))

	opts := []core.Option{
		core.WithPageSize(cfg.Server.PageSize),
		core.WithLogger(logger),
	}
	if cfg.Check.ResolveHosts {
		opts = append(opts, core.WithResolver(net.DefaultResolver))
	}
	service := core.NewService(dbStore, fetcher, opts...)

	srv := api.NewServer(service, cfg.Server.AllowedOrigins, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("starting server", "port", cfg.Server.Port)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
