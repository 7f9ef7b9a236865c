package embedding

import (
	"context"
	"fmt"
	"strings"

	"ai-chat/internal/apperr"
	"ai-chat/internal/repository/db"
	"ai-chat/internal/service/llm"

	"github.com/google/uuid"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
)

// Searcher finds stored messages semantically close to a query.
type Searcher struct {
	db       db.Database
	embedder llm.Embedder
}

// NewSearcher creates a Searcher. embedder may be nil, in which case every search
// fails with ErrDisabled.
func NewSearcher(database db.Database, embedder llm.Embedder) *Searcher {
	return &Searcher{db: database, embedder: embedder}
}

// Search embeds query and returns up to limit messages, most similar first.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]db.ScoredMessage, error) {
	if s.embedder == nil {
		return nil, ErrDisabled
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.NewValidationError("search", "query", "required", "query is required")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := s.db.SearchSimilarMessages(ctx, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	return hits, nil
}

// GetEmbedding returns the stored embedding of a message.
func (s *Searcher) GetEmbedding(ctx context.Context, messageID uuid.UUID) (*db.MessageEmbedding, error) {
	emb, err := s.db.GetMessageEmbedding(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding: %w", err)
	}
	return emb, nil
}
