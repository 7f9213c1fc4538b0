package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"davinci-allocation/internal/app"
	"davinci-allocation/internal/common/logger"
	"davinci-allocation/internal/config"
	httpapi "davinci-allocation/internal/http"
	"davinci-allocation/internal/matcher"
	"davinci-allocation/internal/service"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Service: "davinci-allocation"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res := &app.Resources{}
	defer func() {
		if err := res.Close(); err != nil {
			log.Warn("Failed to release resources", zap.Error(err))
		}
	}()

	store, err := app.OpenStore(ctx, cfg, res, log)
	if err != nil {
		log.Fatal("Failed to open allocation store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	dir, err := app.OpenDirectory(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open teacher directory", zap.Error(err))
	}
	notifier, err := app.OpenNotifier(ctx, cfg, res, log)
	if err != nil {
		log.Fatal("Failed to set up notifications", zap.Error(err))
	}

	allocations := service.NewAllocationService(store, log)
	m := matcher.NewMatcher(dir, matcher.NewRandomCompatibility(cfg.CompatibilitySeed), log)
	matching := service.NewMatchingService(allocations, m, dir, notifier, log)

	router := httpapi.NewRouter(log)
	router.RegisterHealthRoutes()
	router.RegisterAllocationRoutes(httpapi.NewAllocationHandler(allocations, matching, cfg.JobFormSpreadsheet, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server stopped", zap.Error(err))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown incomplete", zap.Error(err))
	}
}
