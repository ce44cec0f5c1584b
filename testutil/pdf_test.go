package testutil

import (
	"bytes"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPDFIsReadable(t *testing.T) {
	data := BuildPDF("hello (world)", "", "second page")

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Equal(t, 3, r.NumPage())

	text, err := r.Page(1).GetPlainText(nil)
	require.NoError(t, err)
	assert.Contains(t, text, "hello (world)")

	text, err = r.Page(2).GetPlainText(nil)
	require.NoError(t, err)
	assert.Empty(t, bytes.TrimSpace([]byte(text)))

	text, err = r.Page(3).GetPlainText(nil)
	require.NoError(t, err)
	assert.Contains(t, text, "second page")
}

func TestBuildPDFCorruptAndEmpty(t *testing.T) {
	data := BuildPDF("readable", CorruptPage)
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Equal(t, 2, r.NumPage())

	data = BuildPDF()
	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Zero(t, r.NumPage())
}

func TestHashEmbeddingSimilarity(t *testing.T) {
	a := HashEmbedding("test content")
	b := HashEmbedding("Test content!")
	c := HashEmbedding("quarterly revenue grew")

	assert.Equal(t, a, b)
	assert.Greater(t, dot(a, b), dot(a, c))
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
