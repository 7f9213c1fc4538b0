package main

import (
	"context"
	"fmt"
	"os"

	"davinci-allocation/internal/app"
	"davinci-allocation/internal/common/logger"
	"davinci-allocation/internal/config"
	"davinci-allocation/internal/service"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	file := pflag.StringP("file", "f", cfg.JobFormSpreadsheet, "job form workbook (.xlsx)")
	backend := pflag.String("store", cfg.Store.Backend, "allocation store backend (memory|file|sqlite|postgres|redis)")
	dataDir := pflag.String("data-dir", cfg.Store.DataDir, "data directory for the file store")
	pflag.Parse()

	cfg.Store.Backend = *backend
	cfg.Store.DataDir = *dataDir

	log, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: "console", Service: "import-job-forms"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(context.Background(), cfg, *file, log); err != nil {
		log.Error("Import failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, file string, log *zap.Logger) error {
	res := &app.Resources{}
	defer res.Close()

	store, err := app.OpenStore(ctx, cfg, res, log)
	if err != nil {
		return err
	}
	added, err := service.NewAllocationService(store, log).SyncFromSpreadsheet(ctx, file)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d new allocations from %s\n", added, file)
	return nil
}
