package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/tieubaoca/pdf-chat-be/types"
)

const FakeEmbeddingDim = 64

// FakeEmbedder hashes the words of each text into a fixed size bag of
// words vector, so texts sharing words are similar.
type FakeEmbedder struct {
	mu    sync.Mutex
	Err   error // returned by every call when set
	Calls []types.EmbeddingMode
	Texts int
}

func (e *FakeEmbedder) Embed(ctx context.Context, texts []string, mode types.EmbeddingMode) ([][]float32, error) {
	e.mu.Lock()
	e.Calls = append(e.Calls, mode)
	err := e.Err
	e.Texts += len(texts)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = HashEmbedding(t)
	}
	return out, nil
}

func (e *FakeEmbedder) Modes() []types.EmbeddingMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]types.EmbeddingMode(nil), e.Calls...)
}

// HashEmbedding returns the normalised bag of words vector of text.
func HashEmbedding(text string) []float32 {
	v := make([]float32, FakeEmbeddingDim)
	for i := range v {
		v[i] = 0.01
	}
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%FakeEmbeddingDim] += 1
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// FakeAI answers every prompt with Answer and keeps the prompts it saw.
type FakeAI struct {
	mu      sync.Mutex
	Answer  string
	Err     error
	Prompts []string
}

func (a *FakeAI) Generate(ctx context.Context, prompt string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Prompts = append(a.Prompts, prompt)
	if a.Err != nil {
		return "", a.Err
	}
	return a.Answer, nil
}

func (a *FakeAI) LastPrompt() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.Prompts) == 0 {
		return ""
	}
	return a.Prompts[len(a.Prompts)-1]
}
