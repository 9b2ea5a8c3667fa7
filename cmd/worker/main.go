package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nnlgsakib/npo-web/internal/config"
	"github.com/nnlgsakib/npo-web/internal/kvstore"
	"github.com/nnlgsakib/npo-web/internal/logging"
)

// discardRatio is the minimum fraction of a value-log file that must be
// garbage before a GC round rewrites it.
const discardRatio = 0.5

// Worker runs store maintenance: periodic value-log garbage collection on
// the badger database. It must not run against the same data directory as a
// live API process; schedule it during quiet windows instead.
func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	db, err := kvstore.Open(cfg.DataDir, logger)
	if err != nil {
		logger.Fatal("open store failed", zap.Error(err))
	}
	defer db.Close()

	logger.Info("maintenance worker started", zap.Duration("interval", cfg.GCInterval))
	runGC(db, logger)

	ticker := time.NewTicker(cfg.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker stopped")
			return
		case <-ticker.C:
			runGC(db, logger)
		}
	}
}

// runGC repeats GC rounds until a round has nothing left to rewrite, then
// logs the resulting store size.
func runGC(db *kvstore.Store, logger *zap.Logger) {
	for {
		lsmBefore, vlogBefore := db.Size()
		if err := db.RunGC(discardRatio); err != nil {
			logger.Warn("value-log gc failed", zap.Error(err))
			return
		}
		lsm, vlog := db.Size()
		if lsm == lsmBefore && vlog == vlogBefore {
			logger.Info("store size", zap.Int64("lsmBytes", lsm), zap.Int64("vlogBytes", vlog))
			return
		}
		logger.Info("value-log gc reclaimed space",
			zap.Int64("vlogBytesBefore", vlogBefore), zap.Int64("vlogBytes", vlog))
	}
}
