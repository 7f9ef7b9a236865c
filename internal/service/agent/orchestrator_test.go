package agent

import (
	"context"
	"testing"

	"ai-chat/internal/apperr"
	"ai-chat/internal/config"
	"ai-chat/internal/repository/db"
	"ai-chat/internal/service/llm"

	"github.com/firebase/genkit/go/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultSettings(t *testing.T) *config.AgentSettings {
	t.Helper()
	s, err := config.LoadAgentSettings("")
	require.NoError(t, err)
	return s
}

func TestGenerationConfig(t *testing.T) {
	s := defaultSettings(t)

	cfg := GenerationConfig(s)
	assert.InDelta(t, 0.7, cfg.Temperature.Value, 1e-9)
	assert.InDelta(t, 1.0, cfg.TopP.Value, 1e-9)
	assert.Equal(t, int64(42), cfg.Seed.Value)
	assert.Equal(t, int64(1000), cfg.MaxTokens.Value)
	assert.Zero(t, cfg.FrequencyPenalty.Value)
	assert.Zero(t, cfg.PresencePenalty.Value)
	assert.Nil(t, cfg.Stop.OfStringArray)

	s.StopSequences = []string{"</end>", "User:"}
	cfg = GenerationConfig(s)
	assert.Equal(t, []string{"</end>", "User:"}, cfg.Stop.OfStringArray)
}

func TestRequestOptions(t *testing.T) {
	s := defaultSettings(t)
	assert.Len(t, RequestOptions(s), 2, "retries and top_k")

	s.TopK = 0
	assert.Len(t, RequestOptions(s), 1)
}

func TestSome(t *testing.T) {
	out, err := Some(context.Background(), SomeInput{Query: "anything"})
	require.NoError(t, err)
	assert.Equal(t, SomeOutput{Result: "Some result"}, out)
}

func TestObserved_EmitsCallAndResult(t *testing.T) {
	var events []llm.StreamChunk
	ctx := withEmitter(context.Background(), func(c llm.StreamChunk) bool {
		events = append(events, c)
		return true
	})

	tool := observed("some", false, Some)
	out, err := tool(&ai.ToolContext{Context: ctx}, SomeInput{Query: "go"})
	require.NoError(t, err)
	assert.Equal(t, "Some result", out.Result)

	require.Len(t, events, 2)
	require.NotNil(t, events[0].ToolCall)
	assert.Equal(t, "some", events[0].ToolCall.Name)
	assert.JSONEq(t, `{"query":"go"}`, events[0].ToolCall.Arguments)

	require.NotNil(t, events[1].ToolResult)
	assert.Equal(t, events[0].ToolCall.ID, events[1].ToolResult.ToolCallID)
	assert.JSONEq(t, `{"result":"Some result"}`, string(events[1].ToolResult.Output))
}

func TestObserved_WithoutEmitter(t *testing.T) {
	tool := observed("some", true, Some)
	out, err := tool(&ai.ToolContext{Context: context.Background()}, SomeInput{Query: "go"})
	require.NoError(t, err)
	assert.Equal(t, "Some result", out.Result)
}

func TestOrchestrator_StreamRejects(t *testing.T) {
	s := defaultSettings(t)

	o := &Orchestrator{settings: s, provider: "openrouter"}
	_, err := o.Stream(context.Background(), []llm.UIMessage{{Role: "robot", Content: "beep"}})
	assert.True(t, apperr.IsValidation(err), "unknown role, got %v", err)

	_, err = o.Stream(context.Background(), []llm.UIMessage{{Role: "user", Parts: []db.Part{{Type: "text"}}}})
	assert.True(t, apperr.IsValidation(err), "empty text, got %v", err)

	_, err = o.Stream(context.Background(), []llm.UIMessage{{Role: "user", Content: "hi"}})
	assert.True(t, apperr.IsProvider(err), "missing key, got %v", err)

	assert.Equal(t, "google/gemini-2.5-flash", o.Model())
}
