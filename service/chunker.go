package service

import (
	"errors"
	"strings"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

var ErrInvalidChunkConfig = errors.New("chunk size must be greater than overlap")

// ChunkText splits text on whitespace into windows of at most maxLength
// words. Window i starts at word i*(maxLength-overlap), so consecutive
// windows share overlap words. Words are rejoined with single spaces.
func ChunkText(text string, maxLength, overlap int) ([]string, error) {
	if maxLength <= 0 || overlap < 0 || maxLength <= overlap {
		return nil, ErrInvalidChunkConfig
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}, nil
	}

	step := maxLength - overlap
	chunks := make([]string, 0, (len(words)+step-1)/step)
	for start := 0; start < len(words); start += step {
		end := start + maxLength
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks, nil
}
