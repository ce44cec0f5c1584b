package service

import (
	"context"
	"fmt"

	"github.com/tieubaoca/pdf-chat-be/types"
)

// AIService generates an answer for a fully rendered prompt.
type AIService interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder turns texts into vectors. mode is passed on every call so
// concurrent document and query embeddings never share state.
type Embedder interface {
	Embed(ctx context.Context, texts []string, mode types.EmbeddingMode) ([][]float32, error)
}

// unavailableProvider stands in for a provider that could not be
// configured, typically because no API key was set. Every call fails.
type unavailableProvider struct {
	reason string
}

func (p unavailableProvider) Embed(ctx context.Context, texts []string, mode types.EmbeddingMode) ([][]float32, error) {
	return nil, fmt.Errorf("%w: %s", types.ErrUpstream, p.reason)
}

func (p unavailableProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("%w: %s", types.ErrUpstream, p.reason)
}
