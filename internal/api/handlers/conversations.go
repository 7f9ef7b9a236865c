package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"ai-chat/internal/repository/db"
	conversationService "ai-chat/internal/service/conversation"

	"github.com/google/uuid"
)

type ConversationsResponse struct {
	Conversations []db.Conversation `json:"conversations"`
}

type MessagesResponse struct {
	Messages []db.Message `json:"messages"`
}

type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func pathID(r *http.Request, field string) (uuid.UUID, error) {
	return conversationService.ParseID(field, r.PathValue("id"))
}

// CreateConversationHandler creates an empty conversation
func (ch *ChatHandlers) CreateConversationHandler(w http.ResponseWriter, r *http.Request) {
	var in db.NewConversation
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	conv, err := ch.conversationService.CreateConversation(r.Context(), in)
	if err != nil {
		sendAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

// GetConversationsHandler returns a page of conversations
func (ch *ChatHandlers) GetConversationsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		sendError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		sendError(w, http.StatusBadRequest, "Invalid offset", err)
		return
	}

	conversations, err := ch.conversationService.ListConversations(r.Context(), limit, offset)
	if err != nil {
		sendAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ConversationsResponse{Conversations: conversations})
}

// GetConversationHandler returns one conversation
func (ch *ChatHandlers) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		sendAppError(w, err)
		return
	}

	conv, err := ch.conversationService.GetConversation(r.Context(), id)
	if err != nil {
		sendAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// UpdateConversationHandler renames a conversation or replaces its metadata
func (ch *ChatHandlers) UpdateConversationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		sendAppError(w, err)
		return
	}

	var update db.ConversationUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	conv, err := ch.conversationService.UpdateConversation(r.Context(), id, update)
	if err != nil {
		sendAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// DeleteConversationHandler deletes a conversation with its messages
func (ch *ChatHandlers) DeleteConversationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		sendAppError(w, err)
		return
	}

	if err := ch.conversationService.DeleteConversation(r.Context(), id); err != nil {
		sendAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{
		Success: true,
		Message: "Conversation deleted successfully",
	})
}

// GetConversationMessagesHandler returns the messages of a conversation in order
func (ch *ChatHandlers) GetConversationMessagesHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		sendAppError(w, err)
		return
	}

	messages, err := ch.conversationService.GetConversationMessages(r.Context(), id)
	if err != nil {
		sendAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessagesResponse{Messages: messages})
}

// AddMessageHandler appends a message to a conversation
func (ch *ChatHandlers) AddMessageHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		sendAppError(w, err)
		return
	}

	var in db.NewMessage
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	msg, err := ch.conversationService.AddMessage(r.Context(), id, in)
	if err != nil {
		sendAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
