package database

import (
	"context"

	"github.com/tieubaoca/pdf-chat-be/types"
)

// VectorStore defines the storage operations used by ingestion, retrieval
// and deletion. Embeddings are always computed by the caller.
type VectorStore interface {
	// Add stores chunks with their embeddings.
	Add(ctx context.Context, chunks []types.StoredChunk) error
	// Query returns at most k chunks ordered by decreasing similarity.
	Query(ctx context.Context, embedding []float32, k int) ([]types.ScoredChunk, error)
	// List returns every stored chunk without its vector.
	List(ctx context.Context) ([]types.ChunkRecord, error)
	// Delete removes the chunks with the given ids.
	Delete(ctx context.Context, ids []string) error
	Count(ctx context.Context) (int, error)
}
