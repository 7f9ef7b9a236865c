package handlers

import (
	"context"
	"net/http"
	"time"

	"ai-chat/internal/app"
	"ai-chat/internal/logger"
)

// NewRouter registers all API routes on a Go 1.22+ ServeMux
func NewRouter(config *app.Config) http.Handler {
	ch := NewChatHandlers(config)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", healthHandler(config))
	mux.HandleFunc("GET /api/models", ch.GetModelsHandler)

	mux.HandleFunc("POST /api/chat", ch.ChatHandler)
	mux.HandleFunc("POST /api/agent", ch.AgentHandler)

	mux.HandleFunc("POST /api/conversations", ch.CreateConversationHandler)
	mux.HandleFunc("GET /api/conversations", ch.GetConversationsHandler)
	mux.HandleFunc("GET /api/conversations/{id}", ch.GetConversationHandler)
	mux.HandleFunc("PATCH /api/conversations/{id}", ch.UpdateConversationHandler)
	mux.HandleFunc("DELETE /api/conversations/{id}", ch.DeleteConversationHandler)
	mux.HandleFunc("GET /api/conversations/{id}/messages", ch.GetConversationMessagesHandler)
	mux.HandleFunc("POST /api/conversations/{id}/messages", ch.AddMessageHandler)

	mux.HandleFunc("POST /api/search", ch.SearchHandler)
	mux.HandleFunc("GET /api/messages/{id}/embedding", ch.GetMessageEmbeddingHandler)

	return accessLog(enableCORS(config.AppConfig.Server.AllowedOrigins, mux))
}

func healthHandler(config *app.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := config.DB.Ping(ctx); err != nil {
			logger.Log.WithError(err).Warn("Health check failed")
			sendError(w, http.StatusServiceUnavailable, "Database unavailable", err)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}
