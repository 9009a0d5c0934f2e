package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tidder/internal/config"
	"tidder/internal/gather"
	"tidder/internal/store"
	"tidder/internal/util"
)

func main() {
	companiesOnly := flag.Bool("companies-only", false, "only load the companies CSV into the database")
	flag.Parse()

	cfg, err := config.Load(config.Path())
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = config.Default()
	case err != nil:
		log.Fatalf("loading config: %v", err)
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening sqlite store: %v", err)
	}
	defer db.Close()

	provider, err := gather.NewProvider(cfg)
	if err != nil {
		log.Fatalf("creating provider: %v", err)
	}
	refresher := gather.NewRefresher(provider, db, db, store.NewParquetStore(cfg.Storage.DataDir), cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	n, err := refresher.SyncCompanies(ctx)
	if err != nil {
		logger.Error("syncing companies", "error", err)
		os.Exit(1)
	}
	if *companiesOnly {
		fmt.Printf("loaded %d companies\n", n)
		return
	}

	stats, err := refresher.RunOnce(ctx)
	if err != nil {
		logger.Error("refresh failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("refreshed %d quotes, %d bars (%d failed) in %s\n",
		stats.Quotes, stats.Bars, stats.Failed, stats.Elapsed.Round(time.Millisecond))
}
