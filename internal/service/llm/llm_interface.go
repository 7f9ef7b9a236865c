package llm

import (
	"context"
)

// ChatRequest is one streamed completion: the conversation so far and the model to use.
type ChatRequest struct {
	Model    string
	System   string
	Messages []Message
}

// Usage holds the token counts reported for a completion.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

// StreamChunk is one event of a streamed completion. Exactly one of Content, ToolCall,
// ToolResult or Err is set, except for the final chunk which has Done and carries the
// usage and finish reason.
type StreamChunk struct {
	Content      string
	ToolCall     *ToolCall
	ToolResult   *ToolResult
	Usage        *Usage
	FinishReason string
	Model        string
	Done         bool
	Err          error
}

// ChatProvider streams chat completions from a hosted model.
type ChatProvider interface {
	// Stream starts the completion. Errors returned directly happen before any output;
	// later failures arrive as a chunk with Err set. The channel is closed when done.
	Stream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error)

	// DefaultModel returns the model used when the request names none
	DefaultModel() string
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
	Dimensions() int
}
