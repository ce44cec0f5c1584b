package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/tieubaoca/pdf-chat-be/config"
	"github.com/tieubaoca/pdf-chat-be/database"
	"github.com/tieubaoca/pdf-chat-be/repository"
	"github.com/tieubaoca/pdf-chat-be/service"
	"github.com/tieubaoca/pdf-chat-be/types"
	"github.com/tieubaoca/pdf-chat-be/utils"
	"go.uber.org/zap"
)

// app wires the services shared by the server and the CLI commands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	providers  *service.Providers
	store      database.VectorStore
	statusRepo repository.StatusRepo

	tracker   *service.StatusTracker
	ingest    *service.IngestService
	rag       *service.RAGService
	documents *service.DocumentService
}

func loadConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	if a.store, err = newVectorStore(ctx, cfg, logger); err != nil {
		a.Close()
		return nil, err
	}
	if a.statusRepo, err = newStatusRepo(ctx, cfg.Status); err != nil {
		a.Close()
		return nil, err
	}
	if a.providers, err = service.NewProviders(ctx, cfg, logger); err != nil {
		a.Close()
		return nil, err
	}

	pdfService, err := service.NewPDFService(types.DocumentServiceConfig{
		MaxChunkSize: cfg.Ingest.ChunkSize,
		OverlapSize:  cfg.Ingest.ChunkOverlap,
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.tracker = service.NewStatusTracker(a.statusRepo,
		service.WithRetention(cfg.Status.Retention),
		service.WithTrackerLogger(logger),
	)
	a.ingest = service.NewIngestService(pdfService, a.providers.Embedder, a.store, a.tracker, service.IngestConfig{
		MaxUploadBytes: cfg.Ingest.MaxUploadBytes,
		BatchSize:      cfg.Ingest.BatchSize,
	}, logger)
	a.rag = service.NewRAGService(a.providers.Embedder, a.providers.AI, a.store, cfg.Retrieval.TopK, logger)
	a.documents = service.NewDocumentService(a.store, logger)

	logger.Info("services initialised",
		zap.String("provider", cfg.Provider),
		zap.String("vector_store", cfg.VectorStore.Backend),
		zap.String("status_store", cfg.Status.Backend),
	)
	return a, nil
}

// requirePersistentStore rejects CLI ingestion into the in-process store,
// whose content is gone when the command exits.
func (a *app) requirePersistentStore() error {
	if a.cfg.VectorStore.Backend == config.BackendMemory {
		return errors.New("the memory vector store does not outlive this command, set vector_store.backend to weaviate")
	}
	return nil
}

func (a *app) Close() {
	if a.providers != nil {
		if err := a.providers.Close(); err != nil {
			a.logger.Warn("failed to close model provider", zap.Error(err))
		}
	}
	if a.statusRepo != nil {
		if err := a.statusRepo.Close(context.Background()); err != nil {
			a.logger.Warn("failed to close status store", zap.Error(err))
		}
	}
	a.logger.Sync()
}

func newVectorStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (database.VectorStore, error) {
	if cfg.VectorStore.Backend == config.BackendWeaviate {
		store, err := database.NewWeaviateStore(ctx, cfg.VectorStore.Weaviate, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := database.NewChromemStore(cfg.VectorStore.Collection, logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func newStatusRepo(ctx context.Context, cfg config.StatusConfig) (repository.StatusRepo, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return repository.NewSQLiteStatusRepo(cfg.SQLitePath)
	case config.BackendMongo:
		return repository.NewMongoStatusRepo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	default:
		return repository.NewMemoryStatusRepo(), nil
	}
}
