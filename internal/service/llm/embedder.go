package llm

import (
	"context"
	"errors"
	"fmt"

	"ai-chat/internal/apperr"
	"ai-chat/internal/config"

	"github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder implements Embedder with the embeddings endpoint of an OpenAI-compatible API.
type OpenAIEmbedder struct {
	client     *openai.Client
	provider   string
	model      string
	dimensions int
}

func NewOpenAIEmbedder(llmConfig *config.LLMConfig, embeddingConfig *config.EmbeddingConfig) *OpenAIEmbedder {
	clientConfig := openai.DefaultConfig(llmConfig.APIKey)
	if llmConfig.BaseURL != "" {
		clientConfig.BaseURL = llmConfig.BaseURL
	}

	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientConfig),
		provider:   llmConfig.Provider,
		model:      embeddingConfig.Model,
		dimensions: embeddingConfig.Dimensions,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, &apperr.ProviderError{Provider: e.provider, Err: fmt.Errorf("failed to create embedding: %w", err)}
	}
	if len(resp.Data) == 0 {
		return nil, &apperr.ProviderError{Provider: e.provider, Err: errors.New("no embedding returned")}
	}

	vec := resp.Data[0].Embedding
	if len(vec) != e.dimensions {
		return nil, &apperr.ProviderError{
			Provider: e.provider,
			Err:      fmt.Errorf("embedding has %d dimensions, expected %d", len(vec), e.dimensions),
		}
	}
	return vec, nil
}

func (e *OpenAIEmbedder) Model() string { return e.model }

func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }
