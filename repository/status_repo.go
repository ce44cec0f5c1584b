package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/tieubaoca/pdf-chat-be/types"
)

// StatusRepo persists ingestion status records keyed by file id.
// Get returns types.ErrNotFound for unknown ids.
type StatusRepo interface {
	Put(ctx context.Context, record *types.StatusRecord) error
	Get(ctx context.Context, fileID string) (*types.StatusRecord, error)
	Delete(ctx context.Context, fileIDs ...string) error
	List(ctx context.Context) ([]*types.StatusRecord, error)
	Close(ctx context.Context) error
}

type memoryStatusRepo struct {
	mu      sync.RWMutex
	records map[string]types.StatusRecord
}

func NewMemoryStatusRepo() StatusRepo {
	return &memoryStatusRepo{
		records: make(map[string]types.StatusRecord),
	}
}

func (r *memoryStatusRepo) Put(ctx context.Context, record *types.StatusRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.FileID] = *record
	return nil
}

func (r *memoryStatusRepo) Get(ctx context.Context, fileID string) (*types.StatusRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[fileID]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &record, nil
}

func (r *memoryStatusRepo) Delete(ctx context.Context, fileIDs ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range fileIDs {
		delete(r.records, id)
	}
	return nil
}

func (r *memoryStatusRepo) List(ctx context.Context) ([]*types.StatusRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := make([]*types.StatusRecord, 0, len(r.records))
	for _, record := range r.records {
		rec := record
		records = append(records, &rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].FileID < records[j].FileID })
	return records, nil
}

func (r *memoryStatusRepo) Close(ctx context.Context) error {
	return nil
}
