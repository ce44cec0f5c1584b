package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/pdf-chat-be/testutil"
	"github.com/tieubaoca/pdf-chat-be/types"
)

func seed(t *testing.T, store *spyStore, chunks ...types.StoredChunk) {
	t.Helper()
	for i := range chunks {
		chunks[i].Embedding = testutil.HashEmbedding(chunks[i].Content)
	}
	require.NoError(t, store.VectorStore.Add(context.Background(), chunks))
}

func storedChunk(id, doc string, page int, text string) types.StoredChunk {
	return types.StoredChunk{
		ID:       id,
		Content:  text,
		Metadata: types.DocumentMetadata{Document: doc, PageNum: page, ChunkIndex: 1},
	}
}

func TestAnswerRejectsBlankQuery(t *testing.T) {
	embedder := &testutil.FakeEmbedder{}
	ai := &testutil.FakeAI{Answer: "unused"}
	svc := NewRAGService(embedder, ai, newSpyStore(t), 0, nil)

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := svc.Answer(context.Background(), q)
		assert.ErrorIs(t, err, types.ErrInvalidInput)
	}
	assert.Empty(t, embedder.Modes())
	assert.Empty(t, ai.Prompts)
}

func TestAnswerEmptyStore(t *testing.T) {
	ai := &testutil.FakeAI{Answer: "unused"}
	svc := NewRAGService(&testutil.FakeEmbedder{}, ai, newSpyStore(t), 0, nil)

	res, err := svc.Answer(context.Background(), "anything there?")
	require.NoError(t, err)
	assert.Equal(t, NoRelevantInformationAnswer, res.Answer)
	assert.NotNil(t, res.Sources)
	assert.Empty(t, res.Sources)
	assert.Empty(t, ai.Prompts)
}

func TestAnswerUsesClosestChunks(t *testing.T) {
	store := newSpyStore(t)
	seed(t, store,
		storedChunk("1", "a.pdf", 1, "the cat sat on the mat"),
		storedChunk("2", "a.pdf", 2, "quarterly revenue grew by ten percent"),
		storedChunk("3", "b.pdf", 1, "revenue forecasts for next quarter"),
		storedChunk("4", "b.pdf", 2, "office plants need water"),
		storedChunk("5", "c.pdf", 1, "unrelated filler words"),
	)
	embedder := &testutil.FakeEmbedder{}
	ai := &testutil.FakeAI{Answer: "Revenue grew by ten percent."}
	svc := NewRAGService(embedder, ai, store, 0, nil)

	res, err := svc.Answer(context.Background(), "  how much did quarterly revenue grew?  ")
	require.NoError(t, err)
	assert.Equal(t, "Revenue grew by ten percent.", res.Answer)
	require.Len(t, res.Sources, DefaultTopK)
	assert.Equal(t, "a.pdf (Page 2, Chunk 1)", res.Sources[0])
	assert.Equal(t, []types.EmbeddingMode{types.QueryMode}, embedder.Modes())

	prompt := ai.LastPrompt()
	assert.Contains(t, prompt, "quarterly revenue grew by ten percent\n\n")
	assert.Contains(t, prompt, "Question: how much did quarterly revenue grew?")
}

func TestAnswerCapsKAtStoreSize(t *testing.T) {
	store := newSpyStore(t)
	seed(t, store, storedChunk("1", "a.pdf", 1, "only chunk"))
	ai := &testutil.FakeAI{Answer: "ok"}
	svc := NewRAGService(&testutil.FakeEmbedder{}, ai, store, 0, nil)

	res, err := svc.Answer(context.Background(), "chunk?")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf (Page 1, Chunk 1)"}, res.Sources)
	assert.Equal(t, BuildAnswerPrompt("only chunk", "chunk?"), ai.LastPrompt())
}

func TestAnswerUpstreamFailures(t *testing.T) {
	store := newSpyStore(t)
	seed(t, store, storedChunk("1", "a.pdf", 1, "some text"))

	svc := NewRAGService(&testutil.FakeEmbedder{Err: errors.New("embed down")}, &testutil.FakeAI{}, store, 0, nil)
	_, err := svc.Answer(context.Background(), "question")
	assert.ErrorIs(t, err, types.ErrUpstream)

	svc = NewRAGService(&testutil.FakeEmbedder{}, &testutil.FakeAI{Err: errors.New("model down")}, store, 0, nil)
	_, err = svc.Answer(context.Background(), "question")
	assert.ErrorIs(t, err, types.ErrUpstream)
}

func TestAnswerAfterDelete(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t, nil, IngestConfig{})
	_, err := f.svc.Ingest(ctx, "doc.pdf", bytes.NewReader(testutil.BuildPDF("test content")))
	require.NoError(t, err)

	ai := &testutil.FakeAI{Answer: "It says test content."}
	rag := NewRAGService(f.embedder, ai, f.store, 0, nil)
	res, err := rag.Answer(ctx, "what does the document say?")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc.pdf (Page 1, Chunk 1)"}, res.Sources)
	assert.Contains(t, ai.LastPrompt(), "test content")

	_, err = NewDocumentService(f.store, nil).Delete(ctx, "doc.pdf")
	require.NoError(t, err)

	res, err = rag.Answer(ctx, "what does the document say?")
	require.NoError(t, err)
	assert.Equal(t, NoRelevantInformationAnswer, res.Answer)
	assert.Empty(t, res.Sources)
}
