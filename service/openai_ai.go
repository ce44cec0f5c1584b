package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/tieubaoca/pdf-chat-be/types"
	"go.uber.org/zap"
)

var (
	SystemMessageDocumentAssistant = openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: "You are a helpful assistant that answers questions about uploaded PDF documents using only the excerpts you are given.",
	}
)

// OpenAIService generates answers through any OpenAI compatible chat
// completion endpoint.
type OpenAIService struct {
	client *openai.Client
	model  string
	retry  *retrier
}

func newOpenAIClient(baseURL, apiKey string) *openai.Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL // e.g. a local LLM server
	}
	return openai.NewClientWithConfig(config)
}

func NewOpenAIService(client *openai.Client, model string, retryCfg RetryConfig, logger *zap.Logger) *OpenAIService {
	return &OpenAIService{
		client: client,
		model:  model,
		retry:  newRetrier("openai", retryCfg, logger),
	}
}

func (s *OpenAIService) Generate(ctx context.Context, prompt string) (string, error) {
	var content string
	err := s.retry.do(ctx, "generate", func(ctx context.Context) error {
		resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				SystemMessageDocumentAssistant,
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("no response generated")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// OpenAIEmbedder embeds texts through an OpenAI compatible embeddings
// endpoint. Models without task types can be steered with per mode prefixes.
type OpenAIEmbedder struct {
	client         *openai.Client
	model          string
	documentPrefix string
	queryPrefix    string
	retry          *retrier
}

func NewOpenAIEmbedder(client *openai.Client, model, documentPrefix, queryPrefix string, retryCfg RetryConfig, logger *zap.Logger) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client:         client,
		model:          model,
		documentPrefix: documentPrefix,
		queryPrefix:    queryPrefix,
		retry:          newRetrier("openai", retryCfg, logger),
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string, mode types.EmbeddingMode) ([][]float32, error) {
	prefix := e.documentPrefix
	if mode == types.QueryMode {
		prefix = e.queryPrefix
	}
	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = prefix + t
	}

	var vectors [][]float32
	err := e.retry.do(ctx, "embed", func(ctx context.Context) error {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: input,
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return err
		}
		if len(resp.Data) != len(texts) {
			return fmt.Errorf("got %d embeddings for %d texts", len(resp.Data), len(texts))
		}
		vectors = make([][]float32, len(texts))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(texts) {
				return fmt.Errorf("embedding index %d out of range", d.Index)
			}
			vectors[d.Index] = d.Embedding
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}
