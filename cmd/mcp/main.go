package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/tutorly/mathrag/internal/adapters/mcp"
	"github.com/tutorly/mathrag/internal/bootstrap"
	"github.com/tutorly/mathrag/internal/config"
	"github.com/tutorly/mathrag/internal/observability/logging"
)

const serverVersion = "1.0.0"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)
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

	server := mcpadapter.NewServer(app.SearchUC, app.ChunkStore, logger)
	if err := server.ServeStdio(serverVersion); err != nil {
		logger.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
