// Package agent wraps the orchestrator agent: generation settings plus a tool set, run on
// the Genkit runtime. Retries come from the HTTP client and the tool loop from Genkit.
package agent

import (
	"context"
	"errors"
	"fmt"

	"ai-chat/internal/apperr"
	"ai-chat/internal/config"
	"ai-chat/internal/logger"
	"ai-chat/internal/service/llm"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"
)

// Agent streams a reply to a UI message history.
type Agent interface {
	Stream(ctx context.Context, messages []llm.UIMessage) (<-chan llm.StreamChunk, error)
	Model() string
}

var _ Agent = (*Orchestrator)(nil)

type Orchestrator struct {
	genkit   *genkit.Genkit
	settings *config.AgentSettings
	provider string
	apiKey   string
	tools    []ai.ToolRef
}

// NewOrchestrator initializes Genkit for the agent and registers its tools.
func NewOrchestrator(ctx context.Context, llmConfig *config.LLMConfig, settings *config.AgentSettings) *Orchestrator {
	g := llm.NewGenkit(ctx, llmConfig, settings.Model, RequestOptions(settings)...)

	some := genkit.DefineTool(g, "some", "Some", observed("some", settings.Verbose, Some))

	return &Orchestrator{
		genkit:   g,
		settings: settings,
		provider: llmConfig.Provider,
		apiKey:   llmConfig.APIKey,
		tools:    []ai.ToolRef{some},
	}
}

// RequestOptions are the client-level settings: retry count and top_k, which the chat
// completions params have no field for.
func RequestOptions(s *config.AgentSettings) []option.RequestOption {
	opts := []option.RequestOption{option.WithMaxRetries(s.MaxRetries)}
	if s.TopK > 0 {
		opts = append(opts, option.WithJSONSet("top_k", s.TopK))
	}
	return opts
}

// GenerationConfig maps the sampling settings onto the chat completions params.
func GenerationConfig(s *config.AgentSettings) *openai.ChatCompletionNewParams {
	cfg := &openai.ChatCompletionNewParams{
		Temperature:      openai.Float(s.Temperature),
		TopP:             openai.Float(s.TopP),
		Seed:             openai.Int(int64(s.Seed)),
		FrequencyPenalty: openai.Float(s.FrequencyPenalty),
		PresencePenalty:  openai.Float(s.PresencePenalty),
		MaxTokens:        openai.Int(int64(s.MaxOutputTokens)),
	}
	if len(s.StopSequences) > 0 {
		cfg.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: s.StopSequences}
	}
	return cfg
}

func (o *Orchestrator) Model() string {
	return o.settings.Model
}

// Stream runs the agent on the messages. Text deltas, tool calls, tool results and the
// final usage arrive on the channel; a failed run ends with an Err chunk.
func (o *Orchestrator) Stream(ctx context.Context, messages []llm.UIMessage) (<-chan llm.StreamChunk, error) {
	modelMessages, err := llm.RequestMessages(messages)
	if err != nil {
		return nil, err
	}
	if o.apiKey == "" {
		return nil, &apperr.ProviderError{Provider: o.providerName(), Err: errors.New("LLM_API_KEY not configured")}
	}

	model := llm.GenkitModelName(o.provider, o.settings.Model)
	if o.settings.Verbose {
		logger.Log.WithFields(logrus.Fields{
			"model":         model,
			"message_count": len(modelMessages),
			"max_steps":     o.settings.MaxSteps,
		}).Info("Running agent")
	}

	chunks := make(chan llm.StreamChunk)

	go func() {
		defer close(chunks)

		runCtx := withEmitter(ctx, func(c llm.StreamChunk) bool { return llm.Send(ctx, chunks, c) })

		resp, err := genkit.Generate(runCtx, o.genkit,
			ai.WithModelName(model),
			ai.WithSystem(o.settings.System),
			ai.WithMessages(llm.ToGenkitMessages(modelMessages)...),
			ai.WithConfig(GenerationConfig(o.settings)),
			ai.WithTools(o.tools...),
			ai.WithMaxTurns(o.settings.MaxSteps),
			ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
				for _, part := range chunk.Content {
					if part.IsText() && part.Text != "" {
						if !llm.Send(ctx, chunks, llm.StreamChunk{Content: part.Text}) {
							return ctx.Err()
						}
					}
				}
				return nil
			}),
		)
		if err != nil {
			logger.Log.WithError(err).Error("Agent run failed")
			llm.Send(ctx, chunks, llm.StreamChunk{Err: &apperr.ProviderError{Provider: o.providerName(), Err: fmt.Errorf("agent generation failed: %w", err)}})
			return
		}

		var usage *llm.Usage
		if resp.Usage != nil {
			usage = &llm.Usage{
				InputTokens:  int(resp.Usage.InputTokens),
				OutputTokens: int(resp.Usage.OutputTokens),
				TotalTokens:  int(resp.Usage.TotalTokens),
			}
		}

		if o.settings.Verbose {
			logger.Log.WithField("finish_reason", resp.FinishReason).Info("Agent run completed")
		}

		llm.Send(ctx, chunks, llm.StreamChunk{
			Done:         true,
			Usage:        usage,
			FinishReason: string(resp.FinishReason),
			Model:        o.settings.Model,
		})
	}()

	return chunks, nil
}

func (o *Orchestrator) providerName() string {
	if o.provider == "" {
		return "openrouter"
	}
	return o.provider
}
