package db

import (
	"context"

	"github.com/google/uuid"
)

// Database defines the persistence operations for conversations, messages and embeddings.
// Implementations enforce the foreign keys (a message needs its conversation, an embedding
// needs its message), cascade deletes and the one-embedding-per-message rule.
type Database interface {
	// Conversations
	CreateConversation(ctx context.Context, in NewConversation) (*Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error)
	ListConversations(ctx context.Context, limit, offset int) ([]Conversation, error)
	UpdateConversation(ctx context.Context, id uuid.UUID, update ConversationUpdate) (*Conversation, error)
	DeleteConversation(ctx context.Context, id uuid.UUID) error

	// Messages
	AddMessage(ctx context.Context, in NewMessage) (*Message, error)
	GetMessage(ctx context.Context, id uuid.UUID) (*Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]Message, error)

	// Embeddings
	CreateMessageEmbedding(ctx context.Context, in NewMessageEmbedding) (*MessageEmbedding, error)
	GetMessageEmbedding(ctx context.Context, messageID uuid.UUID) (*MessageEmbedding, error)
	SearchSimilarMessages(ctx context.Context, embedding []float32, limit int) ([]ScoredMessage, error)

	Ping(ctx context.Context) error
}
