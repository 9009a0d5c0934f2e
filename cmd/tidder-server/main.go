package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"tidder/internal/config"
	"tidder/internal/gather"
	"tidder/internal/httpapi"
	"tidder/internal/market"
	"tidder/internal/search"
	"tidder/internal/store"
	"tidder/internal/util"
)

func main() {
	// Load config.
	cfgPath := config.Path()
	cfg, err := config.Load(cfgPath)
	defaulted := errors.Is(err, fs.ErrNotExist)
	switch {
	case defaulted:
		cfg = config.Default()
	case err != nil:
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)
	if defaulted {
		logger.Warn("config file not found, using defaults", "path", cfgPath)
	}

	// Stores.
	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening sqlite store: %v", err)
	}
	defer db.Close()
	bars := store.NewParquetStore(cfg.Storage.DataDir)

	provider, err := gather.NewProvider(cfg)
	if err != nil {
		log.Fatalf("creating provider: %v", err)
	}
	refresher := gather.NewRefresher(provider, db, db, bars, cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if _, err := refresher.SyncCompanies(ctx); err != nil {
		logger.Warn("syncing companies", "error", err)
	}
	companies, err := db.ListCompanies(ctx)
	if err != nil {
		log.Fatalf("listing companies: %v", err)
	}
	idx, err := search.New(companies)
	if err != nil {
		log.Fatalf("building search index: %v", err)
	}
	defer idx.Close()

	svc := market.NewService(db, db, bars, cfg.Source.Indices, cfg.Source.HistoryDays)
	srv := httpapi.NewServer(svc, idx, logger, cfg.Server.CacheTTL)

	refresher.AfterRun = func(stats gather.RefreshStats) {
		srv.Invalidate()
		companies, err := db.ListCompanies(ctx)
		if err != nil {
			logger.Error("listing companies after refresh", "error", err)
			return
		}
		if err := idx.Rebuild(companies); err != nil {
			logger.Error("rebuilding search index", "error", err)
		}
	}

	go func() {
		if err := refresher.Run(ctx); err != nil {
			logger.Error("refresher stopped", "error", err)
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("tidder server listening", "addr", httpServer.Addr, "provider", provider.Name(), "companies", len(companies))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down tidder server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
