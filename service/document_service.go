package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tieubaoca/pdf-chat-be/database"
	"github.com/tieubaoca/pdf-chat-be/types"
	"github.com/tieubaoca/pdf-chat-be/utils"
	"go.uber.org/zap"
)

type DocumentService struct {
	store  database.VectorStore
	logger *zap.Logger
}

func NewDocumentService(store database.VectorStore, logger *zap.Logger) *DocumentService {
	return &DocumentService{store: store, logger: utils.OrNop(logger)}
}

// Delete removes every chunk whose source label belongs to documentName.
func (s *DocumentService) Delete(ctx context.Context, documentName string) (*types.DeleteResponse, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing chunks: %w", types.ErrStorage, err)
	}

	prefix := types.SourcePrefix(documentName)
	var ids []string
	for _, r := range records {
		if strings.HasPrefix(r.Source, prefix) {
			ids = append(ids, r.ID)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: document %q", types.ErrNotFound, documentName)
	}

	if err := s.store.Delete(ctx, ids); err != nil {
		return nil, fmt.Errorf("%w: deleting %d chunks of %q: %w", types.ErrStorage, len(ids), documentName, err)
	}
	s.logger.Info("document deleted", zap.String("document", documentName), zap.Int("chunks", len(ids)))

	return &types.DeleteResponse{
		Message: fmt.Sprintf("Document '%s' deleted successfully", documentName),
	}, nil
}

// List groups the stored chunks by document, sorted by name.
func (s *DocumentService) List(ctx context.Context) ([]types.DocumentSummary, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing chunks: %w", types.ErrStorage, err)
	}

	byName := make(map[string]*types.DocumentSummary)
	pages := make(map[string]map[int]struct{})
	for _, r := range records {
		name, page, _, ok := types.ParseSourceLabel(r.Source)
		if !ok {
			s.logger.Debug("skipping chunk with unexpected source label", zap.String("id", r.ID), zap.String("source", r.Source))
			continue
		}
		summary, found := byName[name]
		if !found {
			summary = &types.DocumentSummary{Name: name}
			byName[name] = summary
			pages[name] = make(map[int]struct{})
		}
		summary.Chunks++
		pages[name][page] = struct{}{}
	}

	documents := make([]types.DocumentSummary, 0, len(byName))
	for name, summary := range byName {
		summary.Pages = len(pages[name])
		documents = append(documents, *summary)
	}
	sort.Slice(documents, func(i, j int) bool { return documents[i].Name < documents[j].Name })
	return documents, nil
}
