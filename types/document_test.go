package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceLabel(t *testing.T) {
	assert.Equal(t, "report.pdf (Page 2, Chunk 3)", SourceLabel("report.pdf", 2, 3))
	assert.Equal(t, "report.pdf (Page", SourcePrefix("report.pdf"))
}

func TestParseSourceLabel(t *testing.T) {
	doc, page, chunk, ok := ParseSourceLabel("annual (Page 1) report.pdf (Page 12, Chunk 4)")
	assert.True(t, ok)
	assert.Equal(t, "annual (Page 1) report.pdf", doc)
	assert.Equal(t, 12, page)
	assert.Equal(t, 4, chunk)

	for _, bad := range []string{"", "report.pdf", "report.pdf (Page x, Chunk 1)", "report.pdf (Page 1, Chunk 1"} {
		_, _, _, ok := ParseSourceLabel(bad)
		assert.False(t, ok, bad)
	}
}

func TestMetadataMap(t *testing.T) {
	m := DocumentMetadata{Document: "a.pdf", PageNum: 3, ChunkIndex: 1}.MetadataMap()
	assert.Equal(t, "a.pdf (Page 3, Chunk 1)", m[MetaSource])
	assert.Equal(t, "a.pdf", m[MetaDocument])
	assert.Equal(t, "3", m[MetaPage])
	assert.Equal(t, "1", m[MetaChunk])
}
