package conversation

import (
	"context"
	"fmt"

	"ai-chat/internal/app"
	"ai-chat/internal/apperr"
	"ai-chat/internal/logger"
	"ai-chat/internal/repository/db"
	"ai-chat/pkg/validation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// ConversationService handles the business logic for conversation management
type ConversationService struct {
	db        db.Database
	validator *validation.SchemaValidator
	indexer   app.MessageIndexer
}

// NewConversationService creates a new ConversationService
func NewConversationService(database db.Database, config *app.Config) *ConversationService {
	return &ConversationService{
		db:        database,
		validator: config.Validator,
		indexer:   config.Indexer,
	}
}

// ParseID parses a conversation or message id taken from a path.
func ParseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.NewValidationError("request", field, "uuid", field+" must be a valid UUID")
	}
	return id, nil
}

// CreateConversation validates and stores a new conversation
func (s *ConversationService) CreateConversation(ctx context.Context, in db.NewConversation) (*db.Conversation, error) {
	if err := s.validator.ValidateConversationInsert(&in); err != nil {
		return nil, err
	}

	conv, err := s.db.CreateConversation(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	logger.Log.WithField("conversation_id", conv.ID).Info("Conversation created")
	return conv, nil
}

// ListConversations returns a page of conversations, most recently active first
func (s *ConversationService) ListConversations(ctx context.Context, limit, offset int) ([]db.Conversation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	conversations, err := s.db.ListConversations(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve conversations: %w", err)
	}
	return conversations, nil
}

// GetConversation retrieves one conversation
func (s *ConversationService) GetConversation(ctx context.Context, id uuid.UUID) (*db.Conversation, error) {
	conv, err := s.db.GetConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// UpdateConversation changes the title and/or metadata of a conversation
func (s *ConversationService) UpdateConversation(ctx context.Context, id uuid.UUID, update db.ConversationUpdate) (*db.Conversation, error) {
	if err := s.validator.ValidateConversationUpdate(&update); err != nil {
		return nil, err
	}

	conv, err := s.db.UpdateConversation(ctx, id, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}
	return conv, nil
}

// DeleteConversation deletes a conversation together with its messages and embeddings
func (s *ConversationService) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	if err := s.db.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	logger.Log.WithField("conversation_id", id).Info("Conversation deleted")
	return nil
}

// GetConversationMessages retrieves all messages from a specific conversation
func (s *ConversationService) GetConversationMessages(ctx context.Context, id uuid.UUID) ([]db.Message, error) {
	// 404 rather than an empty list for unknown conversations
	if _, err := s.db.GetConversation(ctx, id); err != nil {
		return nil, fmt.Errorf("conversation not found: %w", err)
	}

	messages, err := s.db.ListMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve messages: %w", err)
	}
	return messages, nil
}

// AddMessage appends a message to a conversation and queues it for embedding
func (s *ConversationService) AddMessage(ctx context.Context, id uuid.UUID, in db.NewMessage) (*db.Message, error) {
	in.ConversationID = id.String()
	if err := s.validator.ValidateMessageInsert(&in); err != nil {
		return nil, err
	}

	msg, err := s.db.AddMessage(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"conversation_id": id,
		"message_id":      msg.ID,
		"role":            msg.Role,
	}).Debug("Message added")

	if s.indexer != nil && (msg.Role == db.RoleUser || msg.Role == db.RoleAssistant) {
		s.indexer.Enqueue(*msg)
	}
	return msg, nil
}
