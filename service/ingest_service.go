package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tieubaoca/pdf-chat-be/database"
	"github.com/tieubaoca/pdf-chat-be/metrics"
	"github.com/tieubaoca/pdf-chat-be/types"
	"github.com/tieubaoca/pdf-chat-be/utils"
	"go.uber.org/zap"
)

const (
	DefaultMaxUploadBytes int64 = 50 << 20
	DefaultInsertBatchSize      = 50
)

type IngestConfig struct {
	MaxUploadBytes int64
	BatchSize      int
}

// IngestService turns an uploaded PDF into embedded chunks in the vector
// store and reports progress through the status tracker, keyed by file name.
type IngestService struct {
	pdfService *PDFService
	embedder   Embedder
	store      database.VectorStore
	tracker    *StatusTracker
	logger     *zap.Logger

	maxUploadBytes int64
	batchSize      int
	newID          func() string
}

func NewIngestService(
	pdfService *PDFService,
	embedder Embedder,
	store database.VectorStore,
	tracker *StatusTracker,
	cfg IngestConfig,
	logger *zap.Logger,
) *IngestService {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultInsertBatchSize
	}
	return &IngestService{
		pdfService:     pdfService,
		embedder:       embedder,
		store:          store,
		tracker:        tracker,
		logger:         utils.OrNop(logger),
		maxUploadBytes: cfg.MaxUploadBytes,
		batchSize:      cfg.BatchSize,
		newID:          uuid.NewString,
	}
}

// MaxUploadBytes is the largest file Ingest accepts.
func (s *IngestService) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// ingestRun carries the state of one Ingest call.
type ingestRun struct {
	s        *IngestService
	fileName string
	progress int
	logger   *zap.Logger
}

func (r *ingestRun) update(ctx context.Context, status string, progress int) {
	if progress > r.progress {
		r.progress = progress
	}
	if err := r.s.tracker.Update(ctx, r.fileName, status, r.progress, ""); err != nil {
		r.logger.Warn("failed to update ingestion status", zap.Error(err))
	}
}

func (r *ingestRun) fail(ctx context.Context, err error) error {
	// the request context may already be cancelled; the record must still
	// reach its terminal state
	ctx = context.WithoutCancel(ctx)
	if uerr := r.s.tracker.Update(ctx, r.fileName, types.STATUS_ERROR, r.progress, err.Error()); uerr != nil {
		r.logger.Warn("failed to record ingestion error", zap.Error(uerr))
	}
	metrics.DocumentsIngested.WithLabelValues("error").Inc()
	r.logger.Error("ingestion failed", zap.Int("progress", r.progress), zap.Error(err))
	return err
}

// Ingest validates, parses, chunks, embeds and stores the PDF read from
// src. Every failure leaves an error status for fileName behind.
func (s *IngestService) Ingest(ctx context.Context, fileName string, src io.Reader) (*types.UploadResult, error) {
	started := time.Now()
	run := &ingestRun{
		s:        s,
		fileName: fileName,
		logger:   s.logger.With(zap.String("file", fileName)),
	}

	if err := s.tracker.Init(ctx, fileName); err != nil {
		run.logger.Warn("failed to init ingestion status", zap.Error(err))
	}
	run.update(ctx, types.STATUS_PROCESSING, 0)

	if !strings.HasSuffix(fileName, ".pdf") {
		return nil, run.fail(ctx, fmt.Errorf("%w: only PDF files are supported", types.ErrInvalidInput))
	}

	data, err := s.readUpload(src)
	if err != nil {
		return nil, run.fail(ctx, err)
	}

	pages, err := s.pdfService.ExtractPages(data)
	if err != nil {
		return nil, run.fail(ctx, err)
	}
	totalPages := len(pages)
	run.update(ctx, types.STATUS_PROCESSING, 10)

	var (
		chunks  []types.DocumentChunk
		results = make([]types.PageResult, 0, totalPages)
	)
	for i, page := range pages {
		result := types.PageResult{Page: page.Page, Err: page.Err}
		if page.Err != nil {
			metrics.PagesSkipped.Inc()
		} else if strings.TrimSpace(page.Text) != "" {
			pageChunks, err := s.pdfService.CreateChunks(page.Text, types.DocumentMetadata{
				Document: fileName,
				PageNum:  page.Page,
			})
			if err != nil {
				return nil, run.fail(ctx, err)
			}
			chunks = append(chunks, pageChunks...)
			result.Chunks = len(pageChunks)
		}
		results = append(results, result)
		run.update(ctx, types.STATUS_PROCESSING, 10+(i+1)*40/totalPages)
	}

	if len(chunks) == 0 {
		return nil, run.fail(ctx, fmt.Errorf("%w: no text could be extracted from the PDF", types.ErrNoContent))
	}

	if err := s.storeChunks(ctx, run, chunks); err != nil {
		return nil, run.fail(ctx, err)
	}

	run.update(ctx, types.STATUS_COMPLETE, 100)
	metrics.DocumentsIngested.WithLabelValues("complete").Inc()
	metrics.IngestDuration.Observe(time.Since(started).Seconds())
	run.logger.Info("document ingested",
		zap.Int("pages", totalPages),
		zap.Int("chunks", len(chunks)),
		zap.Duration("took", time.Since(started)),
	)

	return &types.UploadResult{
		UploadResponse: types.UploadResponse{
			Filename:        fileName,
			PagesProcessed:  totalPages,
			ChunksProcessed: len(chunks),
		},
		Pages: results,
	}, nil
}

// storeChunks embeds and inserts chunks batch by batch. Batches already
// inserted stay in the store when a later one fails.
func (s *IngestService) storeChunks(ctx context.Context, run *ingestRun, chunks []types.DocumentChunk) error {
	total := len(chunks)
	for start := 0; start < total; start += s.batchSize {
		end := start + s.batchSize
		if end > total {
			end = total
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		embeddings, err := s.embedder.Embed(ctx, texts, types.DocumentMode)
		if err != nil {
			if !errors.Is(err, types.ErrUpstream) {
				err = fmt.Errorf("%w: embedding chunks: %w", types.ErrUpstream, err)
			}
			return err
		}
		if len(embeddings) != len(batch) {
			return fmt.Errorf("%w: got %d embeddings for %d chunks", types.ErrUpstream, len(embeddings), len(batch))
		}

		stored := make([]types.StoredChunk, len(batch))
		for i, c := range batch {
			stored[i] = types.StoredChunk{
				ID:        s.newID(),
				Content:   c.Content,
				Metadata:  c.Metadata,
				Embedding: embeddings[i],
			}
		}
		if err := s.store.Add(ctx, stored); err != nil {
			return fmt.Errorf("%w: inserting chunks %d-%d: %w", types.ErrStorage, start+1, end, err)
		}
		metrics.ChunksStored.Add(float64(len(stored)))
		run.update(ctx, types.STATUS_PROCESSING, 50+end*50/total)
	}
	return nil
}

// readUpload reads at most maxUploadBytes+1 bytes so oversized uploads are
// rejected without buffering them whole.
func (s *IngestService) readUpload(src io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(src, s.maxUploadBytes+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("%w: limit is %d bytes", types.ErrPayloadTooLarge, s.maxUploadBytes)
		}
		return nil, fmt.Errorf("%w: reading upload: %v", types.ErrInvalidInput, err)
	}
	if int64(len(data)) > s.maxUploadBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", types.ErrPayloadTooLarge, s.maxUploadBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", types.ErrInvalidInput)
	}
	return data, nil
}
