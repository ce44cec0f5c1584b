package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/pdf-chat-be/database"
	"github.com/tieubaoca/pdf-chat-be/types"
)

var errStoreDown = errors.New("store is down")

// spyStore wraps a real store, counts calls and can fail chosen calls.
type spyStore struct {
	database.VectorStore

	mu         sync.Mutex
	adds       int
	deletes    [][]string
	failAddAt  int // 1-based Add call that fails, 0 never
	failList   bool
	failDelete bool
	onAdd      func(n int)
}

func newSpyStore(t *testing.T) *spyStore {
	t.Helper()
	inner, err := database.NewChromemStore(fmt.Sprintf("test-%s", strings.ReplaceAll(t.Name(), "/", "-")), nil)
	require.NoError(t, err)
	return &spyStore{VectorStore: inner}
}

func (s *spyStore) Add(ctx context.Context, chunks []types.StoredChunk) error {
	s.mu.Lock()
	s.adds++
	n := s.adds
	fail := s.failAddAt != 0 && n == s.failAddAt
	hook := s.onAdd
	s.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if fail {
		return errStoreDown
	}
	return s.VectorStore.Add(ctx, chunks)
}

func (s *spyStore) List(ctx context.Context) ([]types.ChunkRecord, error) {
	if s.failList {
		return nil, errStoreDown
	}
	return s.VectorStore.List(ctx)
}

func (s *spyStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	s.deletes = append(s.deletes, append([]string(nil), ids...))
	s.mu.Unlock()
	if s.failDelete {
		return errStoreDown
	}
	return s.VectorStore.Delete(ctx, ids)
}

func (s *spyStore) addCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adds
}

func newTestPDFService(t *testing.T, size, overlap int) *PDFService {
	t.Helper()
	svc, err := NewPDFService(types.DocumentServiceConfig{MaxChunkSize: size, OverlapSize: overlap}, nil)
	require.NoError(t, err)
	return svc
}
