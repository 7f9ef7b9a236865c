package testutil

import (
	"context"
	"errors"

	"ai-chat/internal/app"
	"ai-chat/internal/config"
	"ai-chat/internal/repository/db"
	"ai-chat/internal/service/llm"
	"ai-chat/pkg/validation"

	"github.com/google/uuid"
)

// MockDatabase is a mock implementation of db.Database for testing
type MockDatabase struct {
	// Conversation mocks
	CreateConversationFunc func(ctx context.Context, in db.NewConversation) (*db.Conversation, error)
	GetConversationFunc    func(ctx context.Context, id uuid.UUID) (*db.Conversation, error)
	ListConversationsFunc  func(ctx context.Context, limit, offset int) ([]db.Conversation, error)
	UpdateConversationFunc func(ctx context.Context, id uuid.UUID, update db.ConversationUpdate) (*db.Conversation, error)
	DeleteConversationFunc func(ctx context.Context, id uuid.UUID) error

	// Message mocks
	AddMessageFunc   func(ctx context.Context, in db.NewMessage) (*db.Message, error)
	GetMessageFunc   func(ctx context.Context, id uuid.UUID) (*db.Message, error)
	ListMessagesFunc func(ctx context.Context, conversationID uuid.UUID) ([]db.Message, error)

	// Embedding mocks
	CreateMessageEmbeddingFunc func(ctx context.Context, in db.NewMessageEmbedding) (*db.MessageEmbedding, error)
	GetMessageEmbeddingFunc    func(ctx context.Context, messageID uuid.UUID) (*db.MessageEmbedding, error)
	SearchSimilarMessagesFunc  func(ctx context.Context, embedding []float32, limit int) ([]db.ScoredMessage, error)

	PingFunc func(ctx context.Context) error
}

var _ db.Database = (*MockDatabase)(nil)

// Conversation methods
func (m *MockDatabase) CreateConversation(ctx context.Context, in db.NewConversation) (*db.Conversation, error) {
	if m.CreateConversationFunc != nil {
		return m.CreateConversationFunc(ctx, in)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) GetConversation(ctx context.Context, id uuid.UUID) (*db.Conversation, error) {
	if m.GetConversationFunc != nil {
		return m.GetConversationFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) ListConversations(ctx context.Context, limit, offset int) ([]db.Conversation, error) {
	if m.ListConversationsFunc != nil {
		return m.ListConversationsFunc(ctx, limit, offset)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) UpdateConversation(ctx context.Context, id uuid.UUID, update db.ConversationUpdate) (*db.Conversation, error) {
	if m.UpdateConversationFunc != nil {
		return m.UpdateConversationFunc(ctx, id, update)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	if m.DeleteConversationFunc != nil {
		return m.DeleteConversationFunc(ctx, id)
	}
	return errors.New("not implemented")
}

// Message methods
func (m *MockDatabase) AddMessage(ctx context.Context, in db.NewMessage) (*db.Message, error) {
	if m.AddMessageFunc != nil {
		return m.AddMessageFunc(ctx, in)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) GetMessage(ctx context.Context, id uuid.UUID) (*db.Message, error) {
	if m.GetMessageFunc != nil {
		return m.GetMessageFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]db.Message, error) {
	if m.ListMessagesFunc != nil {
		return m.ListMessagesFunc(ctx, conversationID)
	}
	return nil, errors.New("not implemented")
}

// Embedding methods
func (m *MockDatabase) CreateMessageEmbedding(ctx context.Context, in db.NewMessageEmbedding) (*db.MessageEmbedding, error) {
	if m.CreateMessageEmbeddingFunc != nil {
		return m.CreateMessageEmbeddingFunc(ctx, in)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) GetMessageEmbedding(ctx context.Context, messageID uuid.UUID) (*db.MessageEmbedding, error) {
	if m.GetMessageEmbeddingFunc != nil {
		return m.GetMessageEmbeddingFunc(ctx, messageID)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) SearchSimilarMessages(ctx context.Context, embedding []float32, limit int) ([]db.ScoredMessage, error) {
	if m.SearchSimilarMessagesFunc != nil {
		return m.SearchSimilarMessagesFunc(ctx, embedding, limit)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// MockChatProvider is a mock implementation of llm.ChatProvider for testing
type MockChatProvider struct {
	StreamFunc       func(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, error)
	DefaultModelFunc func() string

	// Calls counts Stream invocations
	Calls int
}

func (m *MockChatProvider) Stream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	m.Calls++
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *MockChatProvider) DefaultModel() string {
	if m.DefaultModelFunc != nil {
		return m.DefaultModelFunc()
	}
	return "default-model"
}

// MockAgent is a mock implementation of agent.Agent for testing
type MockAgent struct {
	StreamFunc func(ctx context.Context, messages []llm.UIMessage) (<-chan llm.StreamChunk, error)
	ModelName  string
	Calls      int
}

func (m *MockAgent) Stream(ctx context.Context, messages []llm.UIMessage) (<-chan llm.StreamChunk, error) {
	m.Calls++
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, messages)
	}
	return nil, errors.New("not implemented")
}

func (m *MockAgent) Model() string {
	if m.ModelName != "" {
		return m.ModelName
	}
	return "agent-model"
}

// MockEmbedder is a mock implementation of llm.Embedder for testing
type MockEmbedder struct {
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)
	Dims      int
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return nil, errors.New("not implemented")
}

func (m *MockEmbedder) Model() string { return "mock-embedding" }

func (m *MockEmbedder) Dimensions() int { return m.Dims }

// StreamOf returns a closed channel pre-filled with chunks.
func StreamOf(chunks ...llm.StreamChunk) <-chan llm.StreamChunk {
	ch := make(chan llm.StreamChunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch
}

// TextStream streams the given deltas followed by a Done chunk with usage.
func TextStream(deltas ...string) <-chan llm.StreamChunk {
	chunks := make([]llm.StreamChunk, 0, len(deltas)+1)
	for _, d := range deltas {
		chunks = append(chunks, llm.StreamChunk{Content: d})
	}
	chunks = append(chunks, llm.StreamChunk{
		Done:         true,
		FinishReason: "stop",
		Model:        "default-model",
		Usage:        &llm.Usage{InputTokens: 3, OutputTokens: len(deltas), TotalTokens: 3 + len(deltas)},
	})
	return StreamOf(chunks...)
}

// NewMockConfig creates an app.Config for testing around the given store and provider.
func NewMockConfig(database db.Database, provider llm.ChatProvider) *app.Config {
	models, _ := config.NewModelsConfig("")

	return &app.Config{
		DB: database,
		AppConfig: &config.AppConfig{
			Server: config.ServerConfig{AllowedOrigins: []string{"*"}},
			LLM: config.LLMConfig{
				Provider: "openrouter",
				APIKey:   "test-api-key",
				Model:    "default-model",
			},
			Models: models,
		},
		Validator:    validation.NewSchemaValidator(),
		ChatProvider: provider,
	}
}
