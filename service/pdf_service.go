package service

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/tieubaoca/pdf-chat-be/types"
	"github.com/tieubaoca/pdf-chat-be/utils"
	"go.uber.org/zap"
)

// PDFService handles PDF processing operations
type PDFService struct {
	maxChunkSize int // Maximum words per chunk
	overlapSize  int // Words shared between chunks
	logger       *zap.Logger
}

var DefaultDocumentServiceConfig = types.DocumentServiceConfig{
	MaxChunkSize: DefaultChunkSize,
	OverlapSize:  DefaultChunkOverlap,
}

// PageText is the extracted text of one page. Err is set when the page
// could not be read; the page is then skipped by ingestion.
type PageText struct {
	Page int
	Text string
	Err  error
}

// NewPDFService creates a PDF service with configurable chunk sizes.
func NewPDFService(config types.DocumentServiceConfig, logger *zap.Logger) (*PDFService, error) {
	if config.MaxChunkSize <= config.OverlapSize || config.OverlapSize < 0 {
		return nil, fmt.Errorf("%w: size %d, overlap %d", ErrInvalidChunkConfig, config.MaxChunkSize, config.OverlapSize)
	}
	return &PDFService{
		maxChunkSize: config.MaxChunkSize,
		overlapSize:  config.OverlapSize,
		logger:       utils.OrNop(logger),
	}, nil
}

// ExtractPages parses data as a PDF and returns the text of every page in
// order. A document that cannot be parsed or has no pages yields
// types.ErrInvalidPDF. Failures on individual pages are reported per page.
func (s *PDFService) ExtractPages(data []byte) ([]PageText, error) {
	reader, numPages, err := openPDF(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidPDF, err)
	}
	if numPages <= 0 {
		return nil, fmt.Errorf("%w: document has no pages", types.ErrInvalidPDF)
	}

	pages := make([]PageText, 0, numPages)
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		text, err := extractPageText(reader, pageNum)
		if err != nil {
			s.logger.Warn("failed to extract page text",
				zap.Int("page", pageNum),
				zap.Error(err),
			)
			pages = append(pages, PageText{Page: pageNum, Err: err})
			continue
		}
		pages = append(pages, PageText{Page: pageNum, Text: text})
	}
	return pages, nil
}

// CreateChunks splits the text of one page into labelled chunks.
func (s *PDFService) CreateChunks(text string, metadata types.DocumentMetadata) ([]types.DocumentChunk, error) {
	windows, err := ChunkText(text, s.maxChunkSize, s.overlapSize)
	if err != nil {
		return nil, err
	}
	chunks := make([]types.DocumentChunk, 0, len(windows))
	for i, w := range windows {
		md := metadata
		md.ChunkIndex = i + 1
		chunks = append(chunks, types.DocumentChunk{
			Content:  w,
			Metadata: md,
		})
	}
	return chunks, nil
}

// openPDF wraps the parser, which reports some malformed input by panicking.
func openPDF(data []byte) (reader *pdf.Reader, numPages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			reader, numPages, err = nil, 0, fmt.Errorf("malformed PDF: %v", r)
		}
	}()
	reader, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, 0, err
	}
	return reader, reader.NumPage(), nil
}

func extractPageText(reader *pdf.Reader, pageNum int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("reading page %d: %v", pageNum, r)
		}
	}()
	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d not found", pageNum)
	}
	return page.GetPlainText(nil)
}
