package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"financas/internal/amqp"
	"financas/internal/cache"
	"financas/internal/cli"
	apphttp "financas/internal/http"
	applog "financas/internal/log"
	"financas/internal/metrics"
	"financas/internal/middleware/trace"
	"financas/internal/payslip"
	"financas/internal/report"
	"financas/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	shutdownTracing, err := trace.Setup(context.Background(), cfg.OTLPEndpoint, "financas")
	if err != nil {
		logger.Error("Failed to initialize tracing", applog.FieldError, err)
		os.Exit(1)
	}

	store := cli.OpenStore(logger, cfg)
	m := metrics.New()

	summaries := cache.NewLRUCache[report.Summary](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	caches := cache.NewManager()
	caches.Register("summary", summaries)
	caches.StartCleanup(time.Minute)

	opts := []services.LedgerOption{
		services.WithSummaryCache(summaries),
		services.WithTipPolicy(cfg.TipPolicy()),
		services.WithMetrics(m),
	}

	var events *amqp.Client
	if cfg.AMQPURL != "" {
		events = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err := events.Connect(context.Background()); err != nil {
			// publishing reconnects on demand
			logger.Warn("AMQP broker unavailable at startup", applog.FieldError, err)
		}
		opts = append(opts, services.WithEvents(events))
		logger.Info("Ledger events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Ledger events disabled - no AMQP_URL provided")
	}

	ledger := services.NewLedgerService(store, opts...)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Ledger:      ledger,
		Attachments: services.NewAttachmentService(store, m),
		Payslips:    services.NewPayslipService(store, payslip.NewAnalyzer(), m),
		Chat:        services.NewChatService(ledger, m),
	}, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		Logger:             logger,
		Metrics:            m,
		Ready:              store.Ping,
	})

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
		if events != nil {
			if err := events.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err)
			}
		}
		if err := store.Close(); err != nil {
			logger.Warn("Store close error", applog.FieldError, err)
		}
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("Tracer shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Starting financas server",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
