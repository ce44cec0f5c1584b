package service

import (
	"context"

	"github.com/tieubaoca/pdf-chat-be/config"
	"github.com/tieubaoca/pdf-chat-be/utils"
	"go.uber.org/zap"
)

// Providers bundles the embedding and generation capabilities selected by
// configuration.
type Providers struct {
	Embedder Embedder
	AI       AIService
	close    func() error
}

func (p *Providers) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

func RetryConfigFrom(cfg config.RetryConfig) RetryConfig {
	return RetryConfig{
		MaxRetries:  cfg.MaxRetries,
		BaseBackoff: cfg.BaseBackoff,
		RateLimit:   cfg.RateLimit,
		Burst:       cfg.Burst,
	}
}

// NewProviders builds the configured providers. A missing API key is not
// fatal: it is logged and every later call fails with types.ErrUpstream.
func NewProviders(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Providers, error) {
	logger = utils.OrNop(logger)
	retryCfg := RetryConfigFrom(cfg.Retry)

	switch cfg.Provider {
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" && cfg.AIEndpoint == "" {
			return unavailable(logger, "OPENAI_API_KEY is not set"), nil
		}
		client := newOpenAIClient(cfg.AIEndpoint, cfg.OpenAIAPIKey)
		return &Providers{
			Embedder: NewOpenAIEmbedder(client, cfg.EmbeddingModel,
				cfg.EmbeddingPrefixes.Document, cfg.EmbeddingPrefixes.Query, retryCfg, logger),
			AI: NewOpenAIService(client, cfg.Model, retryCfg, logger),
		}, nil
	default:
		keys := cfg.GeminiKeys()
		if len(keys) == 0 {
			return unavailable(logger, "GOOGLE_API_KEY is not set"), nil
		}
		embedder, generator, closeFn, err := newGeminiProviders(ctx, keys, cfg.Model, cfg.EmbeddingModel, retryCfg, logger)
		if err != nil {
			return nil, err
		}
		return &Providers{Embedder: embedder, AI: generator, close: closeFn}, nil
	}
}

func unavailable(logger *zap.Logger, reason string) *Providers {
	logger.Warn("model provider unavailable, embedding and chat requests will fail", zap.String("reason", reason))
	p := unavailableProvider{reason: reason}
	return &Providers{Embedder: p, AI: p}
}
