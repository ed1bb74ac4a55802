// Command import ingests a single CSV file from the local filesystem without
// going through the HTTP API. It creates an upload record, runs the pipeline
// synchronously, and prints the job outcome.
//
// Flags:
//
//	--file  path to the CSV file to ingest (required)
//
// Exit codes: 0 = completed, 1 = error or failed import.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/printshop/catalog-backend/internal/adapter/postgres"
	"github.com/printshop/catalog-backend/internal/adapter/postgres/product"
	"github.com/printshop/catalog-backend/internal/adapter/postgres/upload"
	"github.com/printshop/catalog-backend/internal/app"
	"github.com/printshop/catalog-backend/internal/config"
	"github.com/printshop/catalog-backend/internal/domain"
	"github.com/printshop/catalog-backend/internal/filestore"
	"github.com/printshop/catalog-backend/internal/importer"
)

func main() {
	fileFlag := flag.String("file", "", "path to the CSV file to ingest")
	flag.Parse()

	if *fileFlag == "" {
		log.Fatal("--file is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	store, err := filestore.NewLocal(cfg.Storage.UploadDir)
	if err != nil {
		logger.Error("init file store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	f, err := os.Open(*fileFlag)
	if err != nil {
		logger.Error("open input file", slog.String("error", err.Error()))
		os.Exit(1)
	}
	path, err := store.Save(ctx, filepath.Base(*fileFlag), f)
	f.Close()
	if err != nil {
		logger.Error("store input file", slog.String("error", err.Error()))
		os.Exit(1)
	}

	uploads := upload.New(pool)
	products := product.New(pool, postgres.NewTxManager(pool))

	u, err := uploads.Create(ctx, domain.NewUpload(filepath.Base(*fileFlag), path))
	if err != nil {
		logger.Error("create upload", slog.String("error", err.Error()))
		os.Exit(1)
	}

	pipeline := importer.NewPipeline(logger, uploads, products, store, importer.Config{
		BatchSize:      cfg.Import.BatchSize,
		MaxErrorLength: cfg.Import.MaxErrorLength,
	})

	res, err := pipeline.Run(ctx, u.ID)
	if err != nil {
		logger.Error("run import", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if res.Err != nil {
		logger.Error("import failed",
			slog.String("upload_id", u.ID.String()),
			slog.String("error", res.Err.Error()),
		)
		os.Exit(1)
	}

	logger.Info("import completed",
		slog.String("upload_id", u.ID.String()),
		slog.Int("total", res.Total),
		slog.Int("processed", res.Processed),
		slog.Int("rejected", res.Rejected),
		slog.Int("batches", res.Batches),
		slog.Duration("duration", res.Duration),
	)
}
