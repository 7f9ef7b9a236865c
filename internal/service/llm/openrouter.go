package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"ai-chat/internal/apperr"
	"ai-chat/internal/config"
	"ai-chat/internal/logger"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// OpenRouterProvider implements ChatProvider over the OpenAI-compatible chat completions
// API. OpenRouter is the default endpoint; any compatible base URL works.
type OpenRouterProvider struct {
	client *openai.Client
	config *config.LLMConfig
}

// NewOpenRouterProvider creates a new provider with config
func NewOpenRouterProvider(llmConfig *config.LLMConfig) *OpenRouterProvider {
	clientConfig := openai.DefaultConfig(llmConfig.APIKey)
	if llmConfig.BaseURL != "" {
		clientConfig.BaseURL = llmConfig.BaseURL
	}

	return &OpenRouterProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: llmConfig,
	}
}

func (p *OpenRouterProvider) providerName() string {
	if p.config.Provider != "" {
		return p.config.Provider
	}
	return "openrouter"
}

func toOpenAIMessages(system string, messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		if m.Role == RoleTool {
			msg.Name = m.Name
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

// Stream sends the conversation and streams the reply. The request is opened before
// returning, so an unreachable or rejecting provider is reported as the error result.
func (p *OpenRouterProvider) Stream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error) {
	if p.config.APIKey == "" {
		return nil, &apperr.ProviderError{Provider: p.providerName(), Err: errors.New("LLM_API_KEY not configured")}
	}

	model := req.Model
	if model == "" {
		model = p.DefaultModel()
	}

	logger.Log.WithFields(logrus.Fields{
		"model":         model,
		"message_count": len(req.Messages),
	}).Info("Calling chat completions API (streaming)")

	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:         model,
		Messages:      toOpenAIMessages(req.System, req.Messages),
		Stream:        true,
		StreamOptions: &openai.StreamOptions{IncludeUsage: true},
	})
	if err != nil {
		return nil, &apperr.ProviderError{Provider: p.providerName(), Err: fmt.Errorf("failed to create stream: %w", err)}
	}

	// Create channel to stream chunks
	chunks := make(chan StreamChunk)

	go func() {
		defer close(chunks)
		defer stream.Close()

		var usage *Usage
		var finishReason string

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				Send(ctx, chunks, StreamChunk{Done: true, Usage: usage, FinishReason: finishReason, Model: model})
				logger.Log.WithField("finish_reason", finishReason).Debug("Stream completed")
				return
			}
			if err != nil {
				logger.Log.WithError(err).Error("Stream error")
				Send(ctx, chunks, StreamChunk{Err: &apperr.ProviderError{Provider: p.providerName(), Err: fmt.Errorf("stream error: %w", err)}})
				return
			}

			// Usage arrives on the last event, with empty choices
			if response.Usage != nil {
				usage = &Usage{
					InputTokens:  response.Usage.PromptTokens,
					OutputTokens: response.Usage.CompletionTokens,
					TotalTokens:  response.Usage.TotalTokens,
				}
			}

			if len(response.Choices) == 0 {
				continue
			}
			choice := response.Choices[0]
			if choice.FinishReason != "" {
				finishReason = string(choice.FinishReason)
			}
			if choice.Delta.Content != "" {
				if !Send(ctx, chunks, StreamChunk{Content: choice.Delta.Content}) {
					return
				}
			}
		}
	}()

	return chunks, nil
}

// DefaultModel returns the configured model
func (p *OpenRouterProvider) DefaultModel() string {
	return p.config.Model
}

// Send delivers a chunk unless the consumer has gone away.
func Send(ctx context.Context, ch chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
