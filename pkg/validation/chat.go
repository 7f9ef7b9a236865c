package validation

import (
	"fmt"
	"strings"

	"ai-chat/internal/apperr"
	"ai-chat/internal/service/llm"

	"github.com/google/uuid"
)

// MaxSearchLimit bounds the number of hits a search request may ask for.
const MaxSearchLimit = 50

// ChatRequestValidator validates chat-related requests
type ChatRequestValidator struct{}

// NewChatRequestValidator creates a new ChatRequestValidator
func NewChatRequestValidator() *ChatRequestValidator {
	return &ChatRequestValidator{}
}

// ValidateMessages validates the UI message history of a chat request
func (v *ChatRequestValidator) ValidateMessages(messages []llm.UIMessage) error {
	if messages == nil {
		return apperr.NewValidationError("chat request", "messages", "required", "messages is required")
	}
	if len(messages) == 0 {
		return apperr.NewValidationError("chat request", "messages", "min", "messages must not be empty")
	}

	verr := &apperr.ValidationError{Entity: "chat request"}
	for i, m := range messages {
		field := fmt.Sprintf("messages[%d]", i)

		switch m.Role {
		case llm.RoleSystem, llm.RoleUser, llm.RoleAssistant:
		case "":
			verr.Fields = append(verr.Fields, apperr.FieldError{Field: field + ".role", Rule: "required", Message: field + ".role is required"})
		default:
			verr.Fields = append(verr.Fields, apperr.FieldError{
				Field:   field + ".role",
				Rule:    "oneof",
				Message: fmt.Sprintf("%s.role must be one of: system, user, assistant; got %s", field, m.Role),
			})
		}

		if len(m.Parts) == 0 && m.Content == "" {
			verr.Fields = append(verr.Fields, apperr.FieldError{Field: field + ".parts", Rule: "required", Message: field + " must have parts or content"})
		}
		for j, p := range m.Parts {
			if p.Type == "" {
				pf := fmt.Sprintf("%s.parts[%d].type", field, j)
				verr.Fields = append(verr.Fields, apperr.FieldError{Field: pf, Rule: "required", Message: pf + " is required"})
			}
		}
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// ValidateConversationID validates the optional conversation id
func (v *ChatRequestValidator) ValidateConversationID(id string) error {
	if id == "" {
		return nil // Persistence is optional
	}
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NewValidationError("chat request", "conversationId", "uuid", "conversationId must be a valid UUID")
	}
	return nil
}

// ValidateChatRequest validates a complete chat request
func (v *ChatRequestValidator) ValidateChatRequest(messages []llm.UIMessage, conversationID string) error {
	if err := v.ValidateMessages(messages); err != nil {
		return err
	}
	return v.ValidateConversationID(conversationID)
}

// ValidateSearchRequest validates a semantic search request
func (v *ChatRequestValidator) ValidateSearchRequest(query string, limit int) error {
	if strings.TrimSpace(query) == "" {
		return apperr.NewValidationError("search request", "query", "required", "query is required")
	}
	if limit < 0 || limit > MaxSearchLimit {
		return apperr.NewValidationError("search request", "limit", "max",
			fmt.Sprintf("limit must be between 0 and %d, got %d", MaxSearchLimit, limit))
	}
	return nil
}
