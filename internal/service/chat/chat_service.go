package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ai-chat/internal/app"
	"ai-chat/internal/apperr"
	"ai-chat/internal/logger"
	"ai-chat/internal/repository/db"
	"ai-chat/internal/service/llm"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultTitle = "New conversation"

// StreamRequest contains all the parameters needed to stream a reply
type StreamRequest struct {
	Messages []llm.UIMessage
	// ConversationID enables persistence of the exchange when set
	ConversationID string
	// Model overrides the configured model; aliases are accepted
	Model string
}

// Stream is a reply in progress. Chunks is closed after the final chunk; by then the
// assistant message has been stored when the request was persistent.
type Stream struct {
	MessageID      string
	ConversationID string
	Model          string
	Chunks         <-chan llm.StreamChunk
}

// ChatService handles the business logic for chat operations
type ChatService struct {
	db     db.Database
	config *app.Config
}

// NewChatService creates a new ChatService
func NewChatService(database db.Database, config *app.Config) *ChatService {
	return &ChatService{
		db:     database,
		config: config,
	}
}

// StreamChat streams a completion of the message history from the chat provider.
func (s *ChatService) StreamChat(ctx context.Context, req StreamRequest) (*Stream, error) {
	model, err := s.resolveModel(req.Model)
	if err != nil {
		return nil, err
	}

	modelMessages, err := llm.RequestMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	return s.stream(ctx, req, model, func(ctx context.Context) (<-chan llm.StreamChunk, error) {
		return s.config.ChatProvider.Stream(ctx, llm.ChatRequest{
			Model:    model,
			Messages: modelMessages,
		})
	})
}

// StreamAgent streams the orchestrator agent's reply, including its tool activity.
func (s *ChatService) StreamAgent(ctx context.Context, req StreamRequest) (*Stream, error) {
	if s.config.Agent == nil {
		return nil, &apperr.ConfigurationError{Key: "AGENT_CONFIG_PATH", Reason: "agent is not configured"}
	}
	// checked before anything is stored
	if _, err := llm.RequestMessages(req.Messages); err != nil {
		return nil, err
	}

	return s.stream(ctx, req, s.config.Agent.Model(), func(ctx context.Context) (<-chan llm.StreamChunk, error) {
		return s.config.Agent.Stream(ctx, req.Messages)
	})
}

func (s *ChatService) resolveModel(requested string) (string, error) {
	models := s.config.ModelsConfig()
	if requested == "" {
		return s.config.AppConfig.LLM.Model, nil
	}
	if models != nil && !models.IsValidModel(requested) {
		return "", apperr.NewValidationError("chat request", "model", "oneof", "model is not available: "+requested)
	}
	if models != nil {
		return models.Resolve(requested), nil
	}
	return requested, nil
}

func (s *ChatService) stream(ctx context.Context, req StreamRequest, model string, open func(context.Context) (<-chan llm.StreamChunk, error)) (*Stream, error) {
	var conversation *db.Conversation
	if req.ConversationID != "" {
		conv, err := s.getOrCreateConversation(ctx, req.ConversationID, req.Messages)
		if err != nil {
			return nil, err
		}
		conversation = conv

		if err := s.saveLastUserMessage(ctx, conv.ID, req.Messages); err != nil {
			return nil, err
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"conversation_id": req.ConversationID,
		"message_count":   len(req.Messages),
		"model":           model,
	}).Debug("Starting streaming LLM call")

	upstream, err := open(ctx)
	if err != nil {
		return nil, err
	}

	assistantID := uuid.New()
	out := make(chan llm.StreamChunk)
	reply := &replyBuilder{calls: make(map[string]llm.ToolCall)}

	go func() {
		defer close(out)

		for chunk := range upstream {
			reply.add(chunk)

			if chunk.Done && conversation != nil {
				s.saveAssistantMessage(context.WithoutCancel(ctx), conversation.ID, assistantID, model, reply, chunk)
			}
			if !llm.Send(ctx, out, chunk) {
				return
			}
		}
	}()

	stream := &Stream{
		MessageID: assistantID.String(),
		Model:     model,
		Chunks:    out,
	}
	if conversation != nil {
		stream.ConversationID = conversation.ID.String()
	}
	return stream, nil
}

// getOrCreateConversation returns the conversation with the given id, creating it with a
// title taken from the first user message when it does not exist yet.
func (s *ChatService) getOrCreateConversation(ctx context.Context, rawID string, messages []llm.UIMessage) (*db.Conversation, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperr.NewValidationError("chat request", "conversationId", "uuid", "conversationId must be a valid UUID")
	}

	conv, err := s.db.GetConversation(ctx, id)
	if err == nil {
		return conv, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	in := db.NewConversation{ID: id.String(), Title: TitleFrom(messages)}
	if err := s.config.Validator.ValidateConversationInsert(&in); err != nil {
		return nil, err
	}

	conv, err = s.db.CreateConversation(ctx, in)
	if apperr.IsConflict(err) {
		// created by a concurrent request
		return s.db.GetConversation(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	logger.Log.WithField("conversation_id", conv.ID).Info("Conversation created")
	return conv, nil
}

// TitleFrom derives a conversation title from the first user message.
func TitleFrom(messages []llm.UIMessage) string {
	for _, m := range messages {
		if m.Role != llm.RoleUser {
			continue
		}
		title := strings.Join(strings.Fields(m.Text()), " ")
		if title == "" {
			continue
		}
		runes := []rune(title)
		if len(runes) > db.MaxTitleLength {
			title = string(runes[:db.MaxTitleLength])
		}
		return title
	}
	return defaultTitle
}

func (s *ChatService) saveLastUserMessage(ctx context.Context, conversationID uuid.UUID, messages []llm.UIMessage) error {
	if len(messages) == 0 {
		return nil
	}
	last := messages[len(messages)-1]
	if last.Role != llm.RoleUser {
		return nil
	}

	in := db.NewMessage{
		ConversationID: conversationID.String(),
		Role:           db.RoleUser,
		Content:        last.StoredContent(),
	}
	if id := MessageRowID(conversationID, last.ID); id != uuid.Nil {
		in.ID = id.String()
	}
	if err := s.config.Validator.ValidateMessageInsert(&in); err != nil {
		return err
	}

	msg, err := s.db.AddMessage(ctx, in)
	if apperr.IsConflict(err) {
		// the client resent a message that is already stored
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to save user message: %w", err)
	}

	s.index(*msg)
	return nil
}

// MessageRowID maps a client message id to the id of its row. UUIDs are kept; other ids
// (the front end's nanoids) get a name-based UUID in the conversation's namespace, so a
// resent message maps to the same row. An empty id yields uuid.Nil.
func MessageRowID(conversationID uuid.UUID, clientID string) uuid.UUID {
	if clientID == "" {
		return uuid.Nil
	}
	if id, err := uuid.Parse(clientID); err == nil {
		return id
	}
	return uuid.NewSHA1(conversationID, []byte(clientID))
}

func (s *ChatService) saveAssistantMessage(ctx context.Context, conversationID, id uuid.UUID, model string, reply *replyBuilder, final llm.StreamChunk) {
	if len(reply.parts) == 0 {
		logger.Log.WithField("conversation_id", conversationID).Warn("Empty assistant reply, not saved")
		return
	}

	if final.Model != "" {
		model = final.Model
	}
	in := db.NewMessage{
		ID:             id.String(),
		ConversationID: conversationID.String(),
		Role:           db.RoleAssistant,
		Content:        db.Content{Parts: reply.parts},
		Model:          &model,
	}
	if u := final.Usage; u != nil {
		in.TokenUsage = &db.TokenUsage{
			InputTokens:  &u.InputTokens,
			OutputTokens: &u.OutputTokens,
			TotalTokens:  &u.TotalTokens,
		}
	}

	if err := s.config.Validator.ValidateMessageInsert(&in); err != nil {
		logger.Log.WithError(err).Error("Invalid assistant message")
		return
	}

	msg, err := s.db.AddMessage(ctx, in)
	if err != nil {
		logger.Log.WithError(err).Error("Error adding assistant message")
		return
	}

	logger.Log.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"message_id":      msg.ID,
		"parts":           len(reply.parts),
	}).Debug("Completed streaming response")

	s.index(*msg)
}

func (s *ChatService) index(msg db.Message) {
	if s.config.Indexer != nil {
		s.config.Indexer.Enqueue(msg)
	}
}

// replyBuilder accumulates streamed chunks into stored content parts.
type replyBuilder struct {
	parts []db.Part
	calls map[string]llm.ToolCall
}

func (b *replyBuilder) add(chunk llm.StreamChunk) {
	switch {
	case chunk.Content != "":
		if n := len(b.parts); n > 0 && b.parts[n-1].Type == "text" {
			b.parts[n-1].Text += chunk.Content
			return
		}
		b.parts = append(b.parts, db.TextPart(chunk.Content))

	case chunk.ToolCall != nil:
		b.calls[chunk.ToolCall.ID] = *chunk.ToolCall

	case chunk.ToolResult != nil:
		r := chunk.ToolResult
		call := b.calls[r.ToolCallID]
		name := r.Name
		if name == "" {
			name = call.Name
		}
		var input json.RawMessage
		if call.Arguments != "" {
			input = json.RawMessage(call.Arguments)
		}
		b.parts = append(b.parts, db.ToolPart(name, r.ToolCallID, input, r.Output))
	}
}
