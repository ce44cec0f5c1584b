package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tieubaoca/pdf-chat-be/database"
	"github.com/tieubaoca/pdf-chat-be/metrics"
	"github.com/tieubaoca/pdf-chat-be/types"
	"github.com/tieubaoca/pdf-chat-be/utils"
	"go.uber.org/zap"
)

const (
	DefaultTopK = 3

	NoRelevantInformationAnswer = "I couldn't find any relevant information in the uploaded documents to answer your question."

	answerPromptTemplate = `You are a helpful assistant. Use the following document excerpts to answer the question.
If the excerpts do not contain enough information to answer, say so.

Document context:
%s

Question: %s`
)

// RAGService answers questions from the chunks closest to the query.
type RAGService struct {
	embedder Embedder
	ai       AIService
	store    database.VectorStore
	topK     int
	logger   *zap.Logger
}

func NewRAGService(embedder Embedder, ai AIService, store database.VectorStore, topK int, logger *zap.Logger) *RAGService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &RAGService{
		embedder: embedder,
		ai:       ai,
		store:    store,
		topK:     topK,
		logger:   utils.OrNop(logger),
	}
}

func (s *RAGService) Answer(ctx context.Context, query string) (*types.ChatResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", types.ErrInvalidInput)
	}

	hits, err := s.retrieve(ctx, query)
	if err != nil {
		metrics.ChatRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	if len(hits) == 0 {
		metrics.ChatRequests.WithLabelValues("no_context").Inc()
		return &types.ChatResponse{Answer: NoRelevantInformationAnswer, Sources: []string{}}, nil
	}

	passages := make([]string, len(hits))
	sources := make([]string, len(hits))
	for i, h := range hits {
		passages[i] = h.Content
		sources[i] = h.Source
	}

	answer, err := s.ai.Generate(ctx, BuildAnswerPrompt(strings.Join(passages, "\n\n"), query))
	if err != nil {
		metrics.ChatRequests.WithLabelValues("error").Inc()
		return nil, upstream("generating answer", err)
	}

	metrics.ChatRequests.WithLabelValues("answered").Inc()
	s.logger.Debug("answered question", zap.Strings("sources", sources))
	return &types.ChatResponse{Answer: answer, Sources: sources}, nil
}

func (s *RAGService) retrieve(ctx context.Context, query string) ([]types.ScoredChunk, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: counting chunks: %w", types.ErrStorage, err)
	}
	k := min(s.topK, count)
	if k == 0 {
		return nil, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query}, types.QueryMode)
	if err != nil {
		return nil, upstream("embedding query", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d embeddings for one query", types.ErrUpstream, len(vectors))
	}

	hits, err := s.store.Query(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("%w: querying chunks: %w", types.ErrStorage, err)
	}
	return hits, nil
}

// BuildAnswerPrompt renders the prompt sent to the generation model.
func BuildAnswerPrompt(context, query string) string {
	return fmt.Sprintf(answerPromptTemplate, context, query)
}

func upstream(op string, err error) error {
	if errors.Is(err, types.ErrUpstream) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", types.ErrUpstream, op, err)
}
