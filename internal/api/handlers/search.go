package handlers

import (
	"encoding/json"
	"net/http"

	"ai-chat/internal/logger"
	"ai-chat/internal/repository/db"

	"github.com/sirupsen/logrus"
)

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type SearchResponse struct {
	Results []db.ScoredMessage `json:"results"`
}

// SearchHandler returns stored messages ranked by similarity to the query
func (ch *ChatHandlers) SearchHandler(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := ch.validator.ValidateSearchRequest(req.Query, req.Limit); err != nil {
		sendError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	results, err := ch.searcher.Search(r.Context(), req.Query, req.Limit)
	if err != nil {
		sendAppError(w, err)
		return
	}

	logger.Log.WithFields(logrus.Fields{
		"query_chars": len(req.Query),
		"results":     len(results),
	}).Debug("Search completed")

	if results == nil {
		results = []db.ScoredMessage{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// GetMessageEmbeddingHandler returns the stored embedding of a message
func (ch *ChatHandlers) GetMessageEmbeddingHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		sendAppError(w, err)
		return
	}

	emb, err := ch.searcher.GetEmbedding(r.Context(), id)
	if err != nil {
		sendAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emb)
}
