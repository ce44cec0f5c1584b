package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/tieubaoca/pdf-chat-be/config"
	"github.com/tieubaoca/pdf-chat-be/types"
	"github.com/tieubaoca/pdf-chat-be/utils"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.uber.org/zap"
)

const (
	DefaultWeaviateClass = "DocumentChunk"

	BATCH_SIZE = 200
	// page size used when listing the whole class
	listPageSize = 1000
)

func newChunkClass(name string) *models.Class {
	return &models.Class{
		Class:       name,
		Description: "PDF page chunks with caller supplied vectors",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "content", DataType: []string{"text"}},
			{Name: "source", DataType: []string{"text"}},
			{Name: "document", DataType: []string{"text"}},
			{Name: "page", DataType: []string{"int"}},
			{Name: "chunk", DataType: []string{"int"}},
		},
		VectorIndexType: "hnsw",
	}
}

// WeaviateStore keeps chunks in a Weaviate class. Vectors are always
// supplied by the caller, the class has no vectorizer module.
type WeaviateStore struct {
	client *weaviate.Client
	class  *models.Class
	logger *zap.Logger
}

func NewWeaviateStore(ctx context.Context, cfg config.WeaviateStoreConfig, logger *zap.Logger) (*WeaviateStore, error) {
	var scheme string
	if strings.HasPrefix(cfg.Host, "https") {
		scheme = "https"
	} else {
		scheme = "http"
	}
	host := strings.TrimPrefix(cfg.Host, scheme+"://")
	wcfg := weaviate.Config{
		Host:   host,
		Scheme: scheme,
	}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{
			Value: cfg.APIKey,
		}
		wcfg.Headers = map[string]string{
			"X-Weaviate-Api-Key":     cfg.APIKey,
			"X-Weaviate-Cluster-Url": fmt.Sprintf("%s://%s", scheme, host),
		}
	}
	className := cfg.Class
	if className == "" {
		className = DefaultWeaviateClass
	}

	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}
	s := &WeaviateStore{
		client: client,
		class:  newChunkClass(className),
		logger: utils.OrNop(logger),
	}
	if err := s.ensureClass(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *WeaviateStore) ensureClass(ctx context.Context) error {
	schema, err := s.client.Schema().Getter().Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema: %w", err)
	}
	for _, class := range schema.Classes {
		if class.Class == s.class.Class {
			return nil
		}
	}
	if err := s.client.Schema().ClassCreator().WithClass(s.class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create %s class: %w", s.class.Class, err)
	}
	s.logger.Info("created weaviate class", zap.String("class", s.class.Class))
	return nil
}

// ReInit drops the class with every stored chunk and recreates it empty.
func (s *WeaviateStore) ReInit(ctx context.Context) error {
	err := s.client.Schema().ClassDeleter().WithClassName(s.class.Class).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete %s class: %w", s.class.Class, err)
	}
	if err := s.client.Schema().ClassCreator().WithClass(s.class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create %s class: %w", s.class.Class, err)
	}
	return nil
}

func (s *WeaviateStore) Add(ctx context.Context, chunks []types.StoredChunk) error {
	total := len(chunks)
	for i := 0; i < total; i += BATCH_SIZE {
		end := i + BATCH_SIZE
		if end > total {
			end = total
		}

		batcher := s.client.Batch().ObjectsBatcher()
		for _, c := range chunks[i:end] {
			batcher = batcher.WithObjects(&models.Object{
				Class:      s.class.Class,
				ID:         strfmt.UUID(c.ID),
				Properties: chunkProperties(c),
				Vector:     c.Embedding,
			})
		}

		resp, err := batcher.Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert batch %d-%d: %w", i, end, err)
		}
		for _, r := range resp {
			if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
				return fmt.Errorf("failed to insert object %s: %s", r.ID, r.Result.Errors.Error[0].Message)
			}
		}
		s.logger.Debug("inserted weaviate batch", zap.Int("from", i), zap.Int("to", end), zap.Int("total", total))
	}
	return nil
}

func chunkProperties(c types.StoredChunk) map[string]interface{} {
	return map[string]interface{}{
		"content":  c.Content,
		"source":   c.Metadata.Source(),
		"document": c.Metadata.Document,
		"page":     c.Metadata.PageNum,
		"chunk":    c.Metadata.ChunkIndex,
	}
}

func (s *WeaviateStore) Query(ctx context.Context, embedding []float32, k int) ([]types.ScoredChunk, error) {
	if k <= 0 {
		return []types.ScoredChunk{}, nil
	}
	fields := []graphql.Field{
		{Name: "content"},
		{Name: "source"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}, {Name: "distance"}}},
	}
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(embedding)

	result, err := s.client.GraphQL().Get().
		WithClassName(s.class.Class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("search failed: %v", result.Errors[0].Message)
	}
	return parseScoredChunks(result.Data, s.class.Class), nil
}

func (s *WeaviateStore) List(ctx context.Context) ([]types.ChunkRecord, error) {
	fields := []graphql.Field{
		{Name: "source"},
		{Name: "document"},
		{Name: "page"},
		{Name: "chunk"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}}},
	}

	var (
		records []types.ChunkRecord
		after   string
	)
	for {
		get := s.client.GraphQL().Get().
			WithClassName(s.class.Class).
			WithFields(fields...).
			WithLimit(listPageSize)
		if after != "" {
			get = get.WithAfter(after)
		}
		result, err := get.Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing chunks: %w", err)
		}
		if len(result.Errors) > 0 {
			return nil, fmt.Errorf("listing chunks: %v", result.Errors[0].Message)
		}
		page := parseChunkRecords(result.Data, s.class.Class)
		records = append(records, page...)
		if len(page) < listPageSize {
			return records, nil
		}
		after = page[len(page)-1].ID
	}
}

func (s *WeaviateStore) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		err := s.client.Data().Deleter().
			WithClassName(s.class.Class).
			WithID(id).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("deleting chunk %s: %w", id, err)
		}
	}
	return nil
}

func (s *WeaviateStore) Count(ctx context.Context) (int, error) {
	result, err := s.client.GraphQL().Aggregate().
		WithClassName(s.class.Class).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	if len(result.Errors) > 0 {
		return 0, fmt.Errorf("counting chunks: %v", result.Errors[0].Message)
	}
	return parseCount(result.Data, s.class.Class), nil
}

// Helper functions

func classItems(data map[string]models.JSONObject, op, class string) []interface{} {
	byClass, ok := data[op].(map[string]interface{})
	if !ok {
		return nil
	}
	items, _ := byClass[class].([]interface{})
	return items
}

func parseScoredChunks(data map[string]models.JSONObject, class string) []types.ScoredChunk {
	items := classItems(data, "Get", class)
	hits := make([]types.ScoredChunk, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		hit := types.ScoredChunk{
			Content: stringValue(obj["content"]),
			Source:  stringValue(obj["source"]),
		}
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			hit.ID = stringValue(additional["id"])
			if d, ok := additional["distance"].(float64); ok {
				hit.Similarity = float32(1 - d)
			}
		}
		hits = append(hits, hit)
	}
	return hits
}

func parseChunkRecords(data map[string]models.JSONObject, class string) []types.ChunkRecord {
	items := classItems(data, "Get", class)
	records := make([]types.ChunkRecord, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		record := types.ChunkRecord{
			Source: stringValue(obj["source"]),
			Metadata: map[string]string{
				types.MetaSource:   stringValue(obj["source"]),
				types.MetaDocument: stringValue(obj["document"]),
				types.MetaPage:     numberString(obj["page"]),
				types.MetaChunk:    numberString(obj["chunk"]),
			},
		}
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			record.ID = stringValue(additional["id"])
		}
		records = append(records, record)
	}
	return records
}

func parseCount(data map[string]models.JSONObject, class string) int {
	items := classItems(data, "Aggregate", class)
	if len(items) == 0 {
		return 0
	}
	obj, ok := items[0].(map[string]interface{})
	if !ok {
		return 0
	}
	meta, ok := obj["meta"].(map[string]interface{})
	if !ok {
		return 0
	}
	count, _ := meta["count"].(float64)
	return int(count)
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}

func numberString(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%d", int(f))
}
