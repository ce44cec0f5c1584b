package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/pdf-chat-be/types"
)

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore(t)
	seed(t, store,
		storedChunk("1", "a.pdf", 1, "first"),
		storedChunk("2", "a.pdf", 2, "second"),
		storedChunk("3", "a.pdf.bak", 1, "backup"),
		storedChunk("4", "my a.pdf", 1, "other"),
	)
	svc := NewDocumentService(store, nil)

	res, err := svc.Delete(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Contains(t, res.Message, "a.pdf")
	require.Len(t, store.deletes, 1)
	assert.ElementsMatch(t, []string{"1", "2"}, store.deletes[0])

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	_, err = svc.Delete(ctx, "a.pdf")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDeleteDocumentEmptyStore(t *testing.T) {
	store := newSpyStore(t)
	_, err := NewDocumentService(store, nil).Delete(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Empty(t, store.deletes)
}

func TestDeleteDocumentStorageErrors(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore(t)
	seed(t, store, storedChunk("1", "a.pdf", 1, "first"))
	svc := NewDocumentService(store, nil)

	store.failDelete = true
	_, err := svc.Delete(ctx, "a.pdf")
	assert.ErrorIs(t, err, types.ErrStorage)

	store.failList = true
	_, err = svc.Delete(ctx, "a.pdf")
	assert.ErrorIs(t, err, types.ErrStorage)
}

func TestListDocuments(t *testing.T) {
	store := newSpyStore(t)
	seed(t, store,
		storedChunk("1", "b.pdf", 1, "one"),
		storedChunk("2", "a.pdf", 1, "two"),
		storedChunk("3", "a.pdf", 3, "three"),
	)
	more := storedChunk("4", "a.pdf", 3, "four")
	more.Metadata.ChunkIndex = 2
	seed(t, store, more)

	docs, err := NewDocumentService(store, nil).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.DocumentSummary{
		{Name: "a.pdf", Chunks: 3, Pages: 2},
		{Name: "b.pdf", Chunks: 1, Pages: 1},
	}, docs)
}
