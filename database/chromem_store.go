package database

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/tieubaoca/pdf-chat-be/types"
	"github.com/tieubaoca/pdf-chat-be/utils"
	"go.uber.org/zap"
)

const DefaultCollection = "pdf_documents"

var errNoEmbedding = errors.New("chunk has no embedding, embeddings must be computed by the caller")

// ChromemStore is an in-process vector store backed by chromem-go.
// chromem has no way to enumerate a collection, so the store keeps its own
// index of what it added for List.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	logger     *zap.Logger

	mu    sync.RWMutex
	index map[string]types.ChunkRecord
}

func NewChromemStore(collectionName string, logger *zap.Logger) (*ChromemStore, error) {
	if collectionName == "" {
		collectionName = DefaultCollection
	}
	db := chromem.NewDB()
	// The collection must never embed on its own.
	refuse := func(ctx context.Context, text string) ([]float32, error) {
		return nil, errNoEmbedding
	}
	collection, err := db.GetOrCreateCollection(collectionName, nil, refuse)
	if err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", collectionName, err)
	}
	return &ChromemStore{
		db:         db,
		collection: collection,
		logger:     utils.OrNop(logger),
		index:      make(map[string]types.ChunkRecord),
	}, nil
}

func (s *ChromemStore) Add(ctx context.Context, chunks []types.StoredChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s: %w", c.ID, errNoEmbedding)
		}
		docs[i] = chromem.Document{
			ID:        c.ID,
			Metadata:  c.Metadata.MetadataMap(),
			Embedding: c.Embedding,
			Content:   c.Content,
		}
	}

	addErr := s.collection.AddDocuments(ctx, docs, runtime.NumCPU())

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		if addErr != nil {
			// index only what actually landed
			if _, err := s.collection.GetByID(ctx, d.ID); err != nil {
				continue
			}
		}
		s.index[d.ID] = types.ChunkRecord{ID: d.ID, Source: d.Metadata[types.MetaSource], Metadata: d.Metadata}
	}
	if addErr != nil {
		return fmt.Errorf("adding %d chunks: %w", len(docs), addErr)
	}

	s.logger.Debug("added chunks to chromem collection", zap.Int("count", len(docs)))
	return nil
}

func (s *ChromemStore) Query(ctx context.Context, embedding []float32, k int) ([]types.ScoredChunk, error) {
	if k <= 0 {
		return []types.ScoredChunk{}, nil
	}
	// Cap k at collection size (chromem requires nResults <= doc count)
	docCount := s.collection.Count()
	if docCount == 0 {
		return []types.ScoredChunk{}, nil
	}
	if k > docCount {
		k = docCount
	}

	results, err := s.collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	hits := make([]types.ScoredChunk, len(results))
	for i, r := range results {
		hits[i] = types.ScoredChunk{
			ID:         r.ID,
			Content:    r.Content,
			Source:     r.Metadata[types.MetaSource],
			Similarity: r.Similarity,
		}
	}
	return hits, nil
}

func (s *ChromemStore) List(ctx context.Context) ([]types.ChunkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]types.ChunkRecord, 0, len(s.index))
	for _, r := range s.index {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (s *ChromemStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.collection.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("deleting %d chunks: %w", len(ids), err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.index, id)
	}
	return nil
}

func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	return s.collection.Count(), nil
}
