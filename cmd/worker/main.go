package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tutorly/mathrag/internal/bootstrap"
	"github.com/tutorly/mathrag/internal/config"
	"github.com/tutorly/mathrag/internal/observability/logging"
	"github.com/tutorly/mathrag/internal/observability/metrics"
)

const indexTimeout = 30 * time.Minute

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.WarmKeywordIndex(ctx); err != nil {
		logger.Error("keyword_index_warmup_failed", "error", err)
		os.Exit(1)
	}

	workerMetrics := metrics.NewWorkerMetrics("worker")
	go serveMetrics(cfg.WorkerMetricsPort, workerMetrics, logger)

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeTextbookIngested(ctx, func(handlerCtx context.Context, textbookID string) error {
		indexCtx, cancel := context.WithTimeout(handlerCtx, indexTimeout)
		defer cancel()

		workerMetrics.StartTextbook()
		start := time.Now()
		indexErr := app.IndexUC.IndexByID(indexCtx, textbookID)
		workerMetrics.FinishTextbook("worker", time.Since(start), indexErr)

		if indexErr == nil {
			if tb, err := app.Repo.GetByID(indexCtx, textbookID); err == nil {
				workerMetrics.ObserveIndexedVolume("worker", tb.PageCount, tb.ChunkCount)
				workerMetrics.ObserveQueueLag("worker", start.Sub(tb.CreatedAt))
			}
		}
		return indexErr
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

func serveMetrics(port string, m *metrics.WorkerMetrics, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Error("worker_metrics_server_failed", "error", err)
	}
}
