package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ai-chat/internal/logger"
	"ai-chat/internal/service/llm"
)

// uiStreamWriter writes the UI message stream protocol: one JSON event per SSE data
// line, terminated by "data: [DONE]". Headers are committed on the first event so that
// a failure before any output can still be answered with a JSON error.
type uiStreamWriter struct {
	w         http.ResponseWriter
	flusher   http.Flusher
	messageID string

	started  bool
	textID   string
	textOpen bool
	texts    int
}

func newUIStreamWriter(w http.ResponseWriter, messageID string) (*uiStreamWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	return &uiStreamWriter{w: w, flusher: flusher, messageID: messageID}, true
}

func (s *uiStreamWriter) begin() error {
	if s.started {
		return nil
	}
	s.started = true

	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("x-vercel-ai-ui-message-stream", "v1")
	s.w.WriteHeader(http.StatusOK)

	if err := s.event(map[string]any{"type": "start", "messageId": s.messageID}); err != nil {
		return err
	}
	return s.event(map[string]any{"type": "start-step"})
}

func (s *uiStreamWriter) event(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *uiStreamWriter) closeText() error {
	if !s.textOpen {
		return nil
	}
	s.textOpen = false
	return s.event(map[string]any{"type": "text-end", "id": s.textID})
}

// write translates one chunk into protocol events.
func (s *uiStreamWriter) write(chunk llm.StreamChunk) error {
	if err := s.begin(); err != nil {
		return err
	}

	switch {
	case chunk.Err != nil:
		if err := s.closeText(); err != nil {
			return err
		}
		return s.event(map[string]any{"type": "error", "errorText": chunk.Err.Error()})

	case chunk.Content != "":
		if !s.textOpen {
			s.texts++
			s.textID = fmt.Sprintf("%s-text-%d", s.messageID, s.texts)
			s.textOpen = true
			if err := s.event(map[string]any{"type": "text-start", "id": s.textID}); err != nil {
				return err
			}
		}
		return s.event(map[string]any{"type": "text-delta", "id": s.textID, "delta": chunk.Content})

	case chunk.ToolCall != nil:
		if err := s.closeText(); err != nil {
			return err
		}
		var input any = map[string]any{}
		if chunk.ToolCall.Arguments != "" {
			input = json.RawMessage(chunk.ToolCall.Arguments)
		}
		return s.event(map[string]any{
			"type":       "tool-input-available",
			"toolCallId": chunk.ToolCall.ID,
			"toolName":   chunk.ToolCall.Name,
			"input":      input,
		})

	case chunk.ToolResult != nil:
		return s.event(map[string]any{
			"type":       "tool-output-available",
			"toolCallId": chunk.ToolResult.ToolCallID,
			"output":     chunk.ToolResult.Output,
		})

	case chunk.Done:
		if err := s.closeText(); err != nil {
			return err
		}
		if err := s.event(map[string]any{"type": "finish-step"}); err != nil {
			return err
		}
		metadata := map[string]any{}
		if chunk.Usage != nil {
			metadata["usage"] = chunk.Usage
		}
		if chunk.Model != "" {
			metadata["model"] = chunk.Model
		}
		if chunk.FinishReason != "" {
			metadata["finishReason"] = chunk.FinishReason
		}
		return s.event(map[string]any{"type": "finish", "messageMetadata": metadata})
	}
	return nil
}

func (s *uiStreamWriter) done() {
	if err := s.begin(); err != nil {
		return
	}
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		logger.Log.WithError(err).Debug("Client went away before stream end")
		return
	}
	s.flusher.Flush()
}
