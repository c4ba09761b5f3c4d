package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"financas/internal/amqp"
	"financas/internal/cli"
	"financas/internal/config"
	applog "financas/internal/log"
	"financas/internal/metrics"
	"financas/internal/middleware/trace"
	"financas/internal/sheets"
	gsheet "financas/internal/sheets/google"
	"financas/internal/sheets/memory"
	"financas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting financas-worker", applog.FieldOperation, applog.OpStartup)

	shutdownTracing, err := trace.Setup(context.Background(), cfg.OTLPEndpoint, "financas-worker")
	if err != nil {
		logger.Error("Failed to initialize tracing", applog.FieldError, err)
		os.Exit(1)
	}

	if cfg.DataBackend == "memory" {
		logger.Warn("Worker cannot see the server's in-memory store; mirrored rows will not resolve")
	}
	store := cli.OpenStore(logger, cfg)
	defer store.Close()

	var mirror sheets.Mirror
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsFile: cfg.GoogleCredentialsFile,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		mirror = client
		logger.WithComponent(applog.ComponentSheets).Info("Google Sheets mirror initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSheetName)
	} else {
		mirror = memory.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, mirroring in memory")
	}

	m := metrics.New()
	mirrorWorker := worker.NewMirrorWorker(store, mirror, m)

	var metricsSrv *http.Server
	if cfg.WorkerMetricsPort != "" {
		r := chi.NewRouter()
		r.Use(middleware.Recoverer)
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
		r.Handle("/metrics", m.Handler())
		metricsSrv = &http.Server{
			Addr:              ":" + cfg.WorkerMetricsPort,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", applog.FieldError, err, "port", cfg.WorkerMetricsPort)
			}
		}()
		logger.Info("Serving worker metrics", "port", cfg.WorkerMetricsPort)
	}

	events := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)

	// the consumer stops on cancellation; the broker connection is closed after it returns
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	consumer := logger.WithComponent(applog.ComponentAMQP)
	consumer.Info("Consuming ledger events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	if err := events.Consume(ctx, mirrorWorker.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		consumer.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}

	<-done
	if err := events.Close(); err != nil {
		logger.Warn("AMQP close error", applog.FieldError, err)
	}
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(flushCtx); err != nil {
			logger.Warn("Metrics server shutdown error", applog.FieldError, err)
		}
	}
	if err := shutdownTracing(flushCtx); err != nil {
		logger.Warn("Tracer shutdown error", applog.FieldError, err)
	}
	logger.Info("Worker stopped", applog.FieldOperation, applog.OpShutdown)
}
