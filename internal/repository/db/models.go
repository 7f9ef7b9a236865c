package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	MaxTitleLength = 120
	MaxModelLength = 120
)

// Role is the author of a message, stored as the message_role enum.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the enum values.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	}
	return false
}

// Part is one typed element of a message's content. Type and Text are lifted out;
// every other attribute (toolCallId, state, input, output, url, ...) is kept verbatim
// in Fields so that a round trip through the database preserves it.
type Part struct {
	Type   string                     `json:"type" validate:"required"`
	Text   string                     `json:"text,omitempty"`
	Fields map[string]json.RawMessage `json:"-" validate:"-"`
}

// TextPart builds a {"type":"text"} part.
func TextPart(text string) Part {
	return Part{Type: "text", Text: text}
}

// ToolPart builds a completed tool invocation part ("tool-<name>") as the chat front end
// renders it.
func ToolPart(name, callID string, input, output json.RawMessage) Part {
	state, _ := json.Marshal("output-available")
	id, _ := json.Marshal(callID)
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}
	if len(output) == 0 {
		output = json.RawMessage("null")
	}
	return Part{
		Type: "tool-" + name,
		Fields: map[string]json.RawMessage{
			"toolCallId": id,
			"state":      state,
			"input":      input,
			"output":     output,
		},
	}
}

func (p Part) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.Fields)+2)
	for k, v := range p.Fields {
		out[k] = v
	}
	typ, err := json.Marshal(p.Type)
	if err != nil {
		return nil, err
	}
	out["type"] = typ
	if p.Text != "" {
		text, err := json.Marshal(p.Text)
		if err != nil {
			return nil, err
		}
		out["text"] = text
	}
	return json.Marshal(out)
}

func (p *Part) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("content part must be an object: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("content part must be an object")
	}

	*p = Part{}
	if typ, ok := raw["type"]; ok {
		if err := json.Unmarshal(typ, &p.Type); err != nil {
			return fmt.Errorf("content part type must be a string: %w", err)
		}
		delete(raw, "type")
	}
	if text, ok := raw["text"]; ok {
		if err := json.Unmarshal(text, &p.Text); err != nil {
			return fmt.Errorf("content part text must be a string: %w", err)
		}
		delete(raw, "text")
	}
	if len(raw) > 0 {
		p.Fields = raw
	}
	return nil
}

// Field decodes an extra attribute of the part into v. It reports false when absent.
func (p Part) Field(name string, v any) (bool, error) {
	raw, ok := p.Fields[name]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

// Content is the structured payload of a message: an ordered sequence of typed parts.
type Content struct {
	Parts []Part `json:"parts" validate:"required,dive"`
}

// TextContent wraps text into a single-part content.
func TextContent(text string) Content {
	return Content{Parts: []Part{TextPart(text)}}
}

// Text concatenates the text parts in order.
func (c Content) Text() string {
	var sb strings.Builder
	for _, p := range c.Parts {
		if p.Type == "text" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

func (c Content) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *Content) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("cannot scan %T into Content", src)
	}
}

// TokenUsage summarises the token counts reported by the provider for one message.
type TokenUsage struct {
	InputTokens  *int `json:"inputTokens,omitempty" validate:"omitempty,gte=0"`
	OutputTokens *int `json:"outputTokens,omitempty" validate:"omitempty,gte=0"`
	TotalTokens  *int `json:"totalTokens,omitempty" validate:"omitempty,gte=0"`
}

func (u TokenUsage) Value() (driver.Value, error) {
	return json.Marshal(u)
}

func (u *TokenUsage) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, u)
	case string:
		return json.Unmarshal([]byte(v), u)
	default:
		return fmt.Errorf("cannot scan %T into TokenUsage", src)
	}
}

// Conversation is a row of the conversations table.
type Conversation struct {
	ID        uuid.UUID         `json:"id" validate:"required"`
	Title     string            `json:"title" validate:"required,max=120"`
	CreatedAt time.Time         `json:"createdAt" validate:"required"`
	UpdatedAt time.Time         `json:"updatedAt" validate:"required,gtefield=CreatedAt"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
}

// NewConversation is the insert payload for a conversation; the id and timestamps are
// assigned by the store when omitted.
type NewConversation struct {
	ID        string            `json:"id,omitempty" validate:"omitempty,uuid"`
	Title     string            `json:"title" validate:"required,max=120"`
	CreatedAt *time.Time        `json:"createdAt,omitempty"`
	UpdatedAt *time.Time        `json:"updatedAt,omitempty"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
}

// ConversationUpdate changes the title and/or replaces the metadata of a conversation.
type ConversationUpdate struct {
	Title    *string           `json:"title,omitempty" validate:"omitempty,min=1,max=120"`
	Metadata datatypes.JSONMap `json:"metadata,omitempty"`
}

// Message is a row of the messages table.
type Message struct {
	ID             uuid.UUID   `json:"id" validate:"required"`
	ConversationID uuid.UUID   `json:"conversationId" validate:"required"`
	Role           Role        `json:"role" validate:"required,oneof=user assistant system tool"`
	Content        Content     `json:"content"`
	CreatedAt      time.Time   `json:"createdAt" validate:"required"`
	TokenUsage     *TokenUsage `json:"tokenUsage,omitempty"`
	Model          *string     `json:"model,omitempty" validate:"omitempty,max=120"`
}

// NewMessage is the insert payload for a message.
type NewMessage struct {
	ID             string      `json:"id,omitempty" validate:"omitempty,uuid"`
	ConversationID string      `json:"conversationId" validate:"required,uuid"`
	Role           Role        `json:"role" validate:"required,oneof=user assistant system tool"`
	Content        Content     `json:"content"`
	CreatedAt      *time.Time  `json:"createdAt,omitempty"`
	TokenUsage     *TokenUsage `json:"tokenUsage,omitempty"`
	Model          *string     `json:"model,omitempty" validate:"omitempty,max=120"`
}

// MessageEmbedding is a row of the message_embeddings table. MessageID is also the
// primary key, so a message has at most one embedding.
type MessageEmbedding struct {
	MessageID   uuid.UUID         `json:"messageId" validate:"required"`
	Embedding   []float32         `json:"embedding" validate:"required,min=1"`
	Dimensions  int               `json:"dimensions" validate:"gt=0"`
	VectorModel string            `json:"vectorModel" validate:"required,max=120"`
	CreatedAt   time.Time         `json:"createdAt" validate:"required"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
}

// NewMessageEmbedding is the insert payload for an embedding.
type NewMessageEmbedding struct {
	MessageID   string            `json:"messageId" validate:"required,uuid"`
	Embedding   []float32         `json:"embedding" validate:"required,min=1"`
	Dimensions  int               `json:"dimensions" validate:"gt=0"`
	VectorModel string            `json:"vectorModel" validate:"required,max=120"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
}

// ScoredMessage is a search hit: a message and the cosine similarity of its embedding
// to the query vector.
type ScoredMessage struct {
	Message    Message `json:"message"`
	Similarity float64 `json:"similarity"`
}
