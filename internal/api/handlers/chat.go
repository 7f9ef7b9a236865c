package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"ai-chat/internal/app"
	"ai-chat/internal/config"
	"ai-chat/internal/logger"
	chatService "ai-chat/internal/service/chat"
	conversationService "ai-chat/internal/service/conversation"
	"ai-chat/internal/service/embedding"
	"ai-chat/internal/service/llm"
	"ai-chat/pkg/validation"

	"github.com/sirupsen/logrus"
)

// Request/Response types

// ChatRequest is the body of /api/chat and /api/agent as the chat front end posts it.
type ChatRequest struct {
	Messages       []llm.UIMessage `json:"messages"`
	ConversationID string          `json:"conversationId,omitempty"`
	Model          string          `json:"model,omitempty"`
}

type ModelsResponse struct {
	Models       []config.Model `json:"models"`
	DefaultModel string         `json:"defaultModel"`
}

// ChatHandlers uses the service layer for better separation of concerns
type ChatHandlers struct {
	config              *app.Config
	validator           *validation.ChatRequestValidator
	chatService         *chatService.ChatService
	conversationService *conversationService.ConversationService
	searcher            *embedding.Searcher
}

// NewChatHandlers creates a new ChatHandlers with service layer
func NewChatHandlers(config *app.Config) *ChatHandlers {
	return &ChatHandlers{
		config:              config,
		validator:           validation.NewChatRequestValidator(),
		chatService:         chatService.NewChatService(config.DB, config),
		conversationService: conversationService.NewConversationService(config.DB, config),
		searcher:            embedding.NewSearcher(config.DB, config.Embedder),
	}
}

// ChatHandler streams a reply from the chat model as a UI message stream
func (ch *ChatHandlers) ChatHandler(w http.ResponseWriter, r *http.Request) {
	ch.serveStream(w, r, "chat", ch.chatService.StreamChat)
}

// AgentHandler streams a reply from the orchestrator agent, tool activity included
func (ch *ChatHandlers) AgentHandler(w http.ResponseWriter, r *http.Request) {
	ch.serveStream(w, r, "agent", ch.chatService.StreamAgent)
}

type streamFunc func(ctx context.Context, req chatService.StreamRequest) (*chatService.Stream, error)

func (ch *ChatHandlers) serveStream(w http.ResponseWriter, r *http.Request, route string, open streamFunc) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := ch.validator.ValidateChatRequest(req.Messages, req.ConversationID); err != nil {
		sendError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	logger.Log.WithFields(logrus.Fields{
		"route":           route,
		"message_count":   len(req.Messages),
		"conversation_id": req.ConversationID,
	}).Info("Chat stream request received")

	stream, err := open(r.Context(), chatService.StreamRequest{
		Messages:       req.Messages,
		ConversationID: req.ConversationID,
		Model:          req.Model,
	})
	if err != nil {
		logger.Log.WithError(err).Error("Error from chat service")
		sendAppError(w, err)
		return
	}

	sw, ok := newUIStreamWriter(w, stream.MessageID)
	if !ok {
		sendError(w, http.StatusInternalServerError, "Streaming not supported", nil)
		return
	}

	deltas := 0
	for chunk := range stream.Chunks {
		// Nothing sent yet: the failure can still be a plain error response.
		if chunk.Err != nil && !sw.started {
			logger.Log.WithError(chunk.Err).Error("Stream failed before output")
			sendAppError(w, chunk.Err)
			return
		}
		if chunk.Err != nil {
			logger.Log.WithError(chunk.Err).Warn("Stream failed after output started")
		}
		if chunk.Content != "" {
			deltas++
		}

		if err := sw.write(chunk); err != nil {
			logger.Log.WithError(err).Debug("Client went away, stopping stream")
			return
		}
	}

	if r.Context().Err() != nil {
		return
	}
	sw.done()

	logger.Log.WithFields(logrus.Fields{
		"route":      route,
		"message_id": stream.MessageID,
		"deltas":     deltas,
	}).Debug("Completed streaming response")
}

// GetModelsHandler returns the list of available models
func (ch *ChatHandlers) GetModelsHandler(w http.ResponseWriter, r *http.Request) {
	models := ch.config.ModelsConfig()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ModelsResponse{
		Models:       models.GetAvailableModels(),
		DefaultModel: ch.config.AppConfig.LLM.Model,
	})
}
