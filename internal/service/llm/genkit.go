package llm

import (
	"context"
	"encoding/json"
	"strings"

	"ai-chat/internal/config"
	"ai-chat/internal/logger"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"
)

// NewGenkit initializes Genkit with the OpenAI-compatible plugin pointed at the configured
// endpoint. opts are applied to every request the plugin's client makes.
func NewGenkit(ctx context.Context, llmConfig *config.LLMConfig, defaultModel string, opts ...option.RequestOption) *genkit.Genkit {
	provider := providerOrDefault(llmConfig.Provider)

	g := genkit.Init(ctx,
		genkit.WithPlugins(&compat_oai.OpenAICompatible{
			Provider: provider,
			APIKey:   llmConfig.APIKey,
			BaseURL:  llmConfig.BaseURL,
			Opts:     opts,
		}),
		genkit.WithDefaultModel(GenkitModelName(provider, defaultModel)),
	)

	logger.Log.WithFields(logrus.Fields{
		"provider":      provider,
		"default_model": defaultModel,
	}).Info("Initialized Genkit")

	return g
}

func providerOrDefault(provider string) string {
	if provider == "" {
		return "openrouter"
	}
	return provider
}

// GenkitModelName prefixes the model with the plugin's provider namespace.
func GenkitModelName(provider, model string) string {
	provider = providerOrDefault(provider)
	if strings.HasPrefix(model, provider+"/") {
		return model
	}
	return provider + "/" + model
}

// ToGenkitMessages converts provider messages to Genkit messages. Assistant messages use
// the model role; tool calls and results become tool request/response parts linked by ref.
func ToGenkitMessages(messages []Message) []*ai.Message {
	out := make([]*ai.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, ai.NewSystemTextMessage(m.Content))
		case RoleUser:
			out = append(out, ai.NewUserTextMessage(m.Content))
		case RoleAssistant:
			var parts []*ai.Part
			if m.Content != "" {
				parts = append(parts, ai.NewTextPart(m.Content))
			}
			for _, tc := range m.ToolCalls {
				parts = append(parts, ai.NewToolRequestPart(&ai.ToolRequest{
					Name:  tc.Name,
					Ref:   tc.ID,
					Input: decodeJSON(tc.Arguments),
				}))
			}
			out = append(out, ai.NewModelMessage(parts...))
		case RoleTool:
			out = append(out, ai.NewMessage(ai.RoleTool, nil, ai.NewToolResponsePart(&ai.ToolResponse{
				Name:   m.Name,
				Ref:    m.ToolCallID,
				Output: decodeJSON(m.Content),
			})))
		}
	}
	return out
}

// decodeJSON returns the decoded value of s, or s itself when it is not JSON.
func decodeJSON(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}
