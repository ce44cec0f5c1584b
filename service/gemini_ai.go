package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/tieubaoca/pdf-chat-be/types"
	"github.com/tieubaoca/pdf-chat-be/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Gemini accepts at most this many texts per batch embedding request.
const geminiMaxBatch = 100

// geminiClient owns one genai client per API key and rotates through the
// keys when a call fails. Clients stay open until Close, since callers may
// still be using a client after it was rotated away from.
type geminiClient struct {
	apiKeys    []string
	currentKey int
	clients    []*genai.Client
	mu         sync.Mutex
}

func newGeminiClient(ctx context.Context, apiKeys []string) (*geminiClient, error) {
	if len(apiKeys) == 0 {
		return nil, errors.New("no API keys provided")
	}
	c := &geminiClient{
		apiKeys: apiKeys,
		clients: make([]*genai.Client, len(apiKeys)),
	}
	if err := c.initClient(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// initClient opens the client for the current key unless it is already open.
func (c *geminiClient) initClient(ctx context.Context) error {
	if c.clients[c.currentKey] != nil {
		return nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKeys[c.currentKey]))
	if err != nil {
		return err
	}
	c.clients[c.currentKey] = client
	return nil
}

func (c *geminiClient) get() *genai.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clients[c.currentKey]
}

// rotate switches to the next key. It reports false when there is only one.
func (c *geminiClient) rotate(ctx context.Context, failed *genai.Client) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.apiKeys) < 2 {
		return false, nil
	}
	if c.clients[c.currentKey] != failed {
		// another caller already rotated
		return true, nil
	}
	prev := c.currentKey
	c.currentKey = (c.currentKey + 1) % len(c.apiKeys)
	if err := c.initClient(ctx); err != nil {
		c.currentKey = prev
		return false, err
	}
	return true, nil
}

func (c *geminiClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for i, client := range c.clients {
		if client == nil {
			continue
		}
		errs = append(errs, client.Close())
		c.clients[i] = nil
	}
	return errors.Join(errs...)
}

// withRotation runs fn and, if it fails and more keys are configured, runs
// it once more on the next key.
func (c *geminiClient) withRotation(ctx context.Context, logger *zap.Logger, fn func(*genai.Client) error) error {
	client := c.get()
	err := fn(client)
	if err == nil || ctx.Err() != nil {
		return err
	}
	rotated, rerr := c.rotate(ctx, client)
	if rerr != nil {
		return errors.Join(err, rerr)
	}
	if !rotated {
		return err
	}
	logger.Warn("gemini call failed, rotated API key", zap.Error(err))
	return fn(c.get())
}

// GeminiService generates answers with a Gemini model.
type GeminiService struct {
	client *geminiClient
	model  string
	retry  *retrier
	logger *zap.Logger
}

func (s *GeminiService) Generate(ctx context.Context, prompt string) (string, error) {
	var content string
	err := s.client.withRotation(ctx, s.logger, func(client *genai.Client) error {
		return s.retry.do(ctx, "generate", func(ctx context.Context) error {
			resp, err := client.GenerativeModel(s.model).GenerateContent(ctx, genai.Text(prompt))
			if err != nil {
				return err
			}
			if len(resp.Candidates) == 0 {
				return errors.New("no response generated")
			}
			var b strings.Builder
			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					if text, ok := part.(genai.Text); ok {
						b.WriteString(string(text))
					}
				}
			}
			content = b.String()
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// GeminiEmbedder embeds texts with a Gemini embedding model using the
// retrieval task types.
type GeminiEmbedder struct {
	client *geminiClient
	model  string
	retry  *retrier
	logger *zap.Logger
}

func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string, mode types.EmbeddingMode) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiMaxBatch {
		end := start + geminiMaxBatch
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := e.embedBatch(ctx, texts[start:end], mode)
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (e *GeminiEmbedder) embedBatch(ctx context.Context, texts []string, mode types.EmbeddingMode) ([][]float32, error) {
	var vectors [][]float32
	err := e.client.withRotation(ctx, e.logger, func(client *genai.Client) error {
		return e.retry.do(ctx, "embed", func(ctx context.Context) error {
			// A fresh model per call: the task type lives on the model value.
			em := client.EmbeddingModel(e.model)
			em.TaskType = genai.TaskTypeRetrievalDocument
			if mode == types.QueryMode {
				em.TaskType = genai.TaskTypeRetrievalQuery
			}
			batch := em.NewBatch()
			for _, t := range texts {
				batch.AddContent(genai.Text(t))
			}
			res, err := em.BatchEmbedContents(ctx, batch)
			if err != nil {
				return err
			}
			if len(res.Embeddings) != len(texts) {
				return fmt.Errorf("got %d embeddings for %d texts", len(res.Embeddings), len(texts))
			}
			vectors = make([][]float32, len(texts))
			for i, emb := range res.Embeddings {
				vectors[i] = emb.Values
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func newGeminiProviders(ctx context.Context, keys []string, model, embeddingModel string, retryCfg RetryConfig, logger *zap.Logger) (*GeminiEmbedder, *GeminiService, func() error, error) {
	logger = utils.OrNop(logger)
	client, err := newGeminiClient(ctx, keys)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating gemini client: %w", err)
	}
	embedder := &GeminiEmbedder{
		client: client,
		model:  embeddingModel,
		retry:  newRetrier("gemini", retryCfg, logger),
		logger: logger,
	}
	generator := &GeminiService{
		client: client,
		model:  model,
		retry:  newRetrier("gemini", retryCfg, logger),
		logger: logger,
	}
	return embedder, generator, client.Close, nil
}
