package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"ai-chat/internal/apperr"
	"ai-chat/internal/repository/db"
)

// UIMessage is a message as the chat front end sends it: an id, a role and either typed
// parts or, in the short form, a plain content string.
type UIMessage struct {
	ID      string    `json:"id,omitempty"`
	Role    string    `json:"role"`
	Parts   []db.Part `json:"parts,omitempty"`
	Content string    `json:"content,omitempty"`
}

// Text returns the concatenated text parts, or Content when the message has no parts.
func (m UIMessage) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	return db.Content{Parts: m.Parts}.Text()
}

// StoredContent is the content column value for the message.
func (m UIMessage) StoredContent() db.Content {
	if len(m.Parts) == 0 {
		return db.TextContent(m.Content)
	}
	return db.Content{Parts: m.Parts}
}

// ToolCall is a tool invocation requested by the model. Arguments is the JSON input.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResult is the output returned to the model for a tool call.
type ToolResult struct {
	ToolCallID string          `json:"toolCallId"`
	Name       string          `json:"name"`
	Output     json.RawMessage `json:"output"`
}

// Message is the provider-facing form of a message.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ConvertToModelMessages turns UI messages into provider messages. Text parts are joined,
// step-start and reasoning parts are dropped, and tool parts of assistant messages become
// tool calls followed by one tool message per result. Tool parts without an output are
// skipped because the provider rejects unanswered calls. Messages left with nothing to
// send are omitted.
func ConvertToModelMessages(messages []UIMessage) ([]Message, error) {
	out := make([]Message, 0, len(messages))

	for i, m := range messages {
		switch m.Role {
		case RoleSystem, RoleUser:
			text := m.Text()
			if text == "" {
				continue
			}
			out = append(out, Message{Role: m.Role, Content: text})

		case RoleAssistant:
			assistant := Message{Role: RoleAssistant}
			var results []Message
			var sb strings.Builder

			if len(m.Parts) == 0 {
				sb.WriteString(m.Content)
			}
			for _, p := range m.Parts {
				switch {
				case p.Type == "text":
					sb.WriteString(p.Text)
				case p.Type == "dynamic-tool" || strings.HasPrefix(p.Type, "tool-"):
					call, result, ok, err := toolExchange(p)
					if err != nil {
						return nil, fmt.Errorf("message %d: %w", i, err)
					}
					if !ok {
						continue
					}
					assistant.ToolCalls = append(assistant.ToolCalls, call)
					results = append(results, result)
				}
			}

			assistant.Content = sb.String()
			if assistant.Content == "" && len(assistant.ToolCalls) == 0 {
				continue
			}
			out = append(out, assistant)
			out = append(out, results...)

		default:
			return nil, fmt.Errorf("message %d: unsupported role %q", i, m.Role)
		}
	}

	return out, nil
}

// RequestMessages converts the messages of a chat request. Conversion failures and a
// history with nothing left to send are validation errors.
func RequestMessages(messages []UIMessage) ([]Message, error) {
	out, err := ConvertToModelMessages(messages)
	if err != nil {
		return nil, &apperr.ValidationError{Entity: "chat request", Err: err}
	}
	if len(out) == 0 {
		return nil, apperr.NewValidationError("chat request", "messages", "required", "messages contain no sendable content")
	}
	return out, nil
}

// toolExchange reads a tool part ("tool-<name>" or "dynamic-tool" with toolName).
func toolExchange(p db.Part) (ToolCall, Message, bool, error) {
	var id, state, name string
	if _, err := p.Field("toolCallId", &id); err != nil {
		return ToolCall{}, Message{}, false, fmt.Errorf("tool part toolCallId: %w", err)
	}
	if _, err := p.Field("state", &state); err != nil {
		return ToolCall{}, Message{}, false, fmt.Errorf("tool part state: %w", err)
	}
	if p.Type == "dynamic-tool" {
		if _, err := p.Field("toolName", &name); err != nil {
			return ToolCall{}, Message{}, false, fmt.Errorf("tool part toolName: %w", err)
		}
	} else {
		name = strings.TrimPrefix(p.Type, "tool-")
	}

	var output string
	switch state {
	case "output-available":
		raw := p.Fields["output"]
		if len(raw) == 0 {
			raw = json.RawMessage("null")
		}
		output = string(raw)
	case "output-error":
		var errText string
		if _, err := p.Field("errorText", &errText); err != nil {
			return ToolCall{}, Message{}, false, fmt.Errorf("tool part errorText: %w", err)
		}
		output = errText
	default:
		return ToolCall{}, Message{}, false, nil
	}

	args := "{}"
	if raw, ok := p.Fields["input"]; ok && len(raw) > 0 {
		args = string(raw)
	}

	call := ToolCall{ID: id, Name: name, Arguments: args}
	result := Message{Role: RoleTool, Content: output, ToolCallID: id, Name: name}
	return call, result, true, nil
}
