// Package bootstrap wires infrastructure into the use cases shared by
// every binary.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tutorly/mathrag/internal/config"
	"github.com/tutorly/mathrag/internal/core/chunking"
	"github.com/tutorly/mathrag/internal/core/domain"
	"github.com/tutorly/mathrag/internal/core/ports"
	"github.com/tutorly/mathrag/internal/core/usecase"
	"github.com/tutorly/mathrag/internal/infrastructure/embedding/ollama"
	"github.com/tutorly/mathrag/internal/infrastructure/extractor"
	"github.com/tutorly/mathrag/internal/infrastructure/extractor/pagejson"
	"github.com/tutorly/mathrag/internal/infrastructure/extractor/pdf"
	"github.com/tutorly/mathrag/internal/infrastructure/extractor/plaintext"
	"github.com/tutorly/mathrag/internal/infrastructure/keyword"
	"github.com/tutorly/mathrag/internal/infrastructure/queue/nats"
	"github.com/tutorly/mathrag/internal/infrastructure/report"
	"github.com/tutorly/mathrag/internal/infrastructure/repository/postgres"
	"github.com/tutorly/mathrag/internal/infrastructure/resilience"
	"github.com/tutorly/mathrag/internal/infrastructure/storage/localfs"
	"github.com/tutorly/mathrag/internal/infrastructure/vector/memory"
	"github.com/tutorly/mathrag/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue      ports.MessageQueue
	Repo       ports.TextbookRepository
	ChunkStore ports.ChunkStore
	Keywords   ports.KeywordIndex

	IngestUC ports.TextbookIngestor
	IndexUC  ports.TextbookIndexer
	DeleteUC ports.TextbookRemover
	SearchUC ports.SearchService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewTextbookRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure textbook schema: %w", err)
	}
	chunkStore := postgres.NewChunkStore(db)
	if err := chunkStore.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure chunk schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	embedder := ollama.NewClient(cfg.OllamaURL, cfg.OllamaEmbedModel, logger,
		ollama.WithResilienceExecutor(executor))

	// QDRANT_URL=memory keeps vectors in process, for local runs and CI.
	var vectors ports.VectorIndex = qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	if cfg.QdrantURL == "memory" {
		vectors = memory.NewIndex()
	}
	keywords := keyword.NewIndex()

	segmenter, err := buildSegmenter(cfg, logger)
	if err != nil {
		return nil, err
	}

	pages := extractor.NewRouter().
		Register(".pdf", pdf.NewExtractor(storage)).
		Register(".json", pagejson.NewExtractor(storage)).
		Register(".txt", plaintext.NewExtractor(storage))

	reporter := report.NewWriter(cfg.ReportDir)

	ingestUC := usecase.NewIngestTextbookUseCase(repo, storage, queue)
	indexUC := usecase.NewIndexTextbookUseCase(
		repo, pages, segmenter, chunkStore, embedder, vectors, keywords, reporter, logger)
	deleteUC := usecase.NewDeleteTextbookUseCase(chunkStore, vectors, keywords, logger)

	retriever := usecase.NewHybridRetriever(usecase.RetrievalConfig{
		RankConstant: cfg.RankConstant,
		DefaultAlpha: cfg.DefaultAlpha,
		EntityAlpha:  cfg.EntityAlpha,
		RangeCap:     cfg.RangeCap,
	}, embedder, vectors, keywords, chunkStore, logger)
	searchUC := usecase.NewRetrievalPipeline(
		usecase.NewQueryClassifier(cfg.RangeCap), retriever, chunkStore, logger)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:      queue,
		Repo:       repo,
		ChunkStore: chunkStore,
		Keywords:   keywords,

		IngestUC: ingestUC,
		IndexUC:  indexUC,
		DeleteUC: deleteUC,
		SearchUC: searchUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func buildSegmenter(cfg config.Config, logger *slog.Logger) (*chunking.Segmenter, error) {
	chunkCfg := chunking.Config{
		MaxChunkSize:  cfg.MaxChunkSize,
		TokenBudget:   cfg.TokenBudget,
		MinChunkChars: cfg.MinChunkChars,
	}

	var opts []chunking.Option
	if cfg.PatternFile != "" {
		patterns, err := chunking.LoadPatterns(cfg.PatternFile)
		if err != nil {
			return nil, fmt.Errorf("load header patterns: %w", err)
		}
		opts = append(opts, chunking.WithPatterns(patterns))
	}

	return chunking.NewSegmenter(chunkCfg, logger, opts...), nil
}

// WarmKeywordIndex loads the persisted chunk corpus into the in-memory
// BM25 index. Call it on startup before serving queries.
func (a *App) WarmKeywordIndex(ctx context.Context) error {
	chunks, err := a.ChunkStore.Filter(ctx, domain.ChunkFilter{})
	if err != nil {
		return fmt.Errorf("load chunk corpus: %w", err)
	}
	a.Keywords.Index(chunks)
	a.Logger.Info("keyword_index_warmed", "chunks", len(chunks))
	return nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
