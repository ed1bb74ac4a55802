// Command server runs the catalog HTTP API: CSV upload intake, background
// import workers, and upload status endpoints.
//
// Configuration comes from CONFIG_PATH (YAML) and environment variables;
// see internal/config.
//
// Exit codes: 0 = clean shutdown, 1 = startup or runtime error.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/printshop/catalog-backend/internal/adapter/postgres"
	"github.com/printshop/catalog-backend/internal/adapter/postgres/product"
	"github.com/printshop/catalog-backend/internal/adapter/postgres/upload"
	"github.com/printshop/catalog-backend/internal/app"
	"github.com/printshop/catalog-backend/internal/config"
	"github.com/printshop/catalog-backend/internal/dispatch"
	"github.com/printshop/catalog-backend/internal/domain"
	"github.com/printshop/catalog-backend/internal/filestore"
	"github.com/printshop/catalog-backend/internal/importer"
	"github.com/printshop/catalog-backend/internal/transport/middleware"
	"github.com/printshop/catalog-backend/internal/transport/rest"
)

// Compile-time interface assertions.
var (
	_ importer.UploadTracker     = (*upload.Repo)(nil)
	_ importer.ProductBulkWriter = (*product.Repo)(nil)
	_ importer.BlobOpener        = (*filestore.Local)(nil)
	_ dispatch.Runner            = (*importer.Pipeline)(nil)
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)
	logger.Info("starting server",
		slog.String("version", app.BuildVersion()),
		slog.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	uploads := upload.New(pool)
	products := product.New(pool, postgres.NewTxManager(pool))

	pipeline := importer.NewPipeline(logger, uploads, products, store, importer.Config{
		BatchSize:      cfg.Import.BatchSize,
		MaxErrorLength: cfg.Import.MaxErrorLength,
	})

	dispatcher := dispatch.New(logger, pipeline, cfg.Import.Workers, cfg.Import.QueueSize)
	dispatcher.Start(ctx)

	requeuePending(ctx, logger, uploads, dispatcher)

	uploadHandler := rest.NewUploadHandler(uploads, store, dispatcher, cfg.Storage.MaxUploadSize, logger)
	healthHandler := rest.NewHealthHandler(pool, app.BuildVersion())

	limiter := middleware.NewRateLimiter(5 * time.Minute)
	defer limiter.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /live", healthHandler.Live)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("POST /uploads", limiter.Limit(cfg.Server.UploadsPerMinute)(http.HandlerFunc(uploadHandler.Create)))
	mux.HandleFunc("GET /uploads", uploadHandler.List)
	mux.HandleFunc("GET /uploads/{id}", uploadHandler.Get)

	handler := middleware.Chain(
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.CORS(cfg.CORS),
	)(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.String("error", err.Error()))
	}

	dispatcher.Stop()
	logger.Info("server stopped")
}

// requeuePending re-enqueues uploads left pending by a previous process, so
// jobs accepted right before a restart are not lost.
func requeuePending(ctx context.Context, logger *slog.Logger, uploads *upload.Repo, dispatcher *dispatch.Dispatcher) {
	status := domain.UploadStatusPending
	requeued := 0

	for offset := 0; ; {
		page, err := uploads.List(ctx, upload.Filter{Status: &status, Limit: 100, Offset: offset})
		if err != nil {
			logger.Error("list pending uploads", slog.String("error", err.Error()))
			return
		}
		if len(page) == 0 {
			break
		}

		for _, u := range page {
			if !dispatcher.Enqueue(u.ID) {
				logger.Warn("import queue full during requeue", slog.Int("requeued", requeued))
				return
			}
			requeued++
		}
		offset += len(page)
	}

	if requeued > 0 {
		logger.Info("requeued pending uploads", slog.Int("count", requeued))
	}
}
