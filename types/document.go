package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Metadata keys stored next to every chunk in the vector store.
const (
	MetaSource   = "source"
	MetaDocument = "document"
	MetaPage     = "page"
	MetaChunk    = "chunk"
)

// DocumentChunk is a piece of page text produced by the chunker, before it
// has an id or an embedding.
type DocumentChunk struct {
	Content  string           // Words of the window joined by single spaces
	Metadata DocumentMetadata // Where the chunk came from
}

// DocumentMetadata locates a chunk inside its source document.
type DocumentMetadata struct {
	Document   string // Uploaded file name, e.g. report.pdf
	PageNum    int    // 1-based page number
	ChunkIndex int    // 1-based chunk index within the page
}

// Source renders the citation label for the chunk.
func (m DocumentMetadata) Source() string {
	return SourceLabel(m.Document, m.PageNum, m.ChunkIndex)
}

// StoredChunk is what the vector store persists.
type StoredChunk struct {
	ID        string
	Content   string
	Metadata  DocumentMetadata
	Embedding []float32
}

// ChunkRecord is a stored chunk without its vector, as returned by listing.
type ChunkRecord struct {
	ID       string
	Source   string
	Metadata map[string]string
}

// ScoredChunk is a query hit, most similar first.
type ScoredChunk struct {
	ID         string
	Content    string
	Source     string
	Similarity float32
}

// DocumentServiceConfig contains options for splitting page text.
type DocumentServiceConfig struct {
	MaxChunkSize int // Maximum words per chunk
	OverlapSize  int // Words shared by consecutive chunks
}

// SourceLabel builds "{name} (Page {page}, Chunk {index})".
func SourceLabel(document string, page, index int) string {
	return fmt.Sprintf("%s (Page %d, Chunk %d)", document, page, index)
}

// SourcePrefix is the label prefix shared by every chunk of a document.
func SourcePrefix(document string) string {
	return document + " (Page"
}

// MetadataMap flattens chunk metadata into the string map kept by stores.
func (m DocumentMetadata) MetadataMap() map[string]string {
	return map[string]string{
		MetaSource:   m.Source(),
		MetaDocument: m.Document,
		MetaPage:     strconv.Itoa(m.PageNum),
		MetaChunk:    strconv.Itoa(m.ChunkIndex),
	}
}

// ParseSourceLabel recovers document, page and chunk from a label. ok is false
// when the label does not have the expected shape.
func ParseSourceLabel(label string) (document string, page, chunk int, ok bool) {
	if !strings.HasSuffix(label, ")") {
		return "", 0, 0, false
	}
	i := strings.LastIndex(label, " (Page ")
	if i < 0 {
		return "", 0, 0, false
	}
	document = label[:i]
	rest := strings.TrimSuffix(label[i+len(" (Page "):], ")")
	pageStr, chunkStr, found := strings.Cut(rest, ", Chunk ")
	if !found {
		return "", 0, 0, false
	}
	page, err := strconv.Atoi(pageStr)
	if err != nil {
		return "", 0, 0, false
	}
	chunk, err = strconv.Atoi(chunkStr)
	if err != nil {
		return "", 0, 0, false
	}
	return document, page, chunk, true
}

// DocumentSummary describes one ingested document.
type DocumentSummary struct {
	Name   string `json:"name"`
	Chunks int    `json:"chunks"`
	Pages  int    `json:"pages"`
}
