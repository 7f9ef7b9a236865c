package llm

import (
	"encoding/json"
	"testing"

	"ai-chat/internal/apperr"
	"ai-chat/internal/repository/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parts(t *testing.T, raw string) []db.Part {
	t.Helper()
	var out []db.Part
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestConvertToModelMessages_Text(t *testing.T) {
	tests := []struct {
		name     string
		messages []UIMessage
		want     []Message
	}{
		{
			name:     "short content form",
			messages: []UIMessage{{Role: "user", Content: "hello"}},
			want:     []Message{{Role: "user", Content: "hello"}},
		},
		{
			name: "text parts are joined",
			messages: []UIMessage{{
				Role:  "user",
				Parts: []db.Part{db.TextPart("hel"), db.TextPart("lo")},
			}},
			want: []Message{{Role: "user", Content: "hello"}},
		},
		{
			name: "step-start and reasoning are dropped",
			messages: []UIMessage{
				{Role: "system", Content: "be brief"},
				{Role: "user", Content: "hi"},
				{Role: "assistant", Parts: parts(t, `[{"type":"step-start"},{"type":"reasoning","text":"thinking"},{"type":"text","text":"Hello!"}]`)},
			},
			want: []Message{
				{Role: "system", Content: "be brief"},
				{Role: "user", Content: "hi"},
				{Role: "assistant", Content: "Hello!"},
			},
		},
		{
			name: "empty messages are omitted",
			messages: []UIMessage{
				{Role: "user", Parts: parts(t, `[{"type":"file","url":"https://x/y.png","mediaType":"image/png"}]`)},
				{Role: "user", Content: "describe"},
			},
			want: []Message{{Role: "user", Content: "describe"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertToModelMessages(tt.messages)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertToModelMessages_ToolParts(t *testing.T) {
	messages := []UIMessage{
		{Role: "user", Content: "look it up"},
		{
			Role: "assistant",
			Parts: parts(t, `[
				{"type":"text","text":"Checking."},
				{"type":"tool-some","toolCallId":"call_1","state":"output-available","input":{"query":"go"},"output":{"result":"Some result"}},
				{"type":"dynamic-tool","toolName":"lookup","toolCallId":"call_2","state":"output-error","input":{},"errorText":"boom"},
				{"type":"tool-some","toolCallId":"call_3","state":"input-streaming","input":{"query":"g"}}
			]`),
		},
	}

	got, err := ConvertToModelMessages(messages)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assistant := got[1]
	assert.Equal(t, "assistant", assistant.Role)
	assert.Equal(t, "Checking.", assistant.Content)
	require.Len(t, assistant.ToolCalls, 2, "calls without output are skipped")
	assert.Equal(t, ToolCall{ID: "call_1", Name: "some", Arguments: `{"query":"go"}`}, assistant.ToolCalls[0])
	assert.Equal(t, "lookup", assistant.ToolCalls[1].Name)

	assert.Equal(t, Message{Role: "tool", Content: `{"result":"Some result"}`, ToolCallID: "call_1", Name: "some"}, got[2])
	assert.Equal(t, Message{Role: "tool", Content: "boom", ToolCallID: "call_2", Name: "lookup"}, got[3])
}

func TestConvertToModelMessages_UnknownRole(t *testing.T) {
	_, err := ConvertToModelMessages([]UIMessage{{Role: "robot", Content: "beep"}})
	assert.Error(t, err)
}

func TestRequestMessages(t *testing.T) {
	got, err := RequestMessages([]UIMessage{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	tests := []struct {
		name     string
		messages []UIMessage
	}{
		{"empty text part", []UIMessage{{Role: "user", Parts: []db.Part{{Type: "text"}}}}},
		{"only step markers", []UIMessage{{Role: "assistant", Parts: []db.Part{{Type: "step-start"}}}}},
		{"unknown role", []UIMessage{{Role: "robot", Content: "beep"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RequestMessages(tt.messages)
			assert.True(t, apperr.IsValidation(err), "got %v", err)
		})
	}
}

func TestUIMessage_Text(t *testing.T) {
	assert.Equal(t, "plain", UIMessage{Content: "plain"}.Text())
	assert.Equal(t, "ab", UIMessage{Content: "ignored", Parts: []db.Part{db.TextPart("a"), db.TextPart("b")}}.Text())

	stored := UIMessage{Content: "plain"}.StoredContent()
	require.Len(t, stored.Parts, 1)
	assert.Equal(t, "text", stored.Parts[0].Type)
}
