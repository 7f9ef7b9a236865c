package postgres

import (
	"context"
	"fmt"

	"ai-chat/internal/logger"
	"ai-chat/internal/repository/db"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const embeddingColumns = `message_id, embedding, dimensions, vector_model, created_at, metadata`

func scanEmbedding(row rowScanner) (*db.MessageEmbedding, error) {
	var e db.MessageEmbedding
	var vec pgvector.Vector
	var metadata datatypes.JSONMap
	if err := row.Scan(&e.MessageID, &vec, &e.Dimensions, &e.VectorModel, &e.CreatedAt, &metadata); err != nil {
		return nil, err
	}
	e.Embedding = vec.Slice()
	if len(metadata) > 0 {
		e.Metadata = metadata
	}
	return &e, nil
}

// CreateMessageEmbedding stores the embedding of a message. A message has at most one.
func (p *PostgresDB) CreateMessageEmbedding(ctx context.Context, in db.NewMessageEmbedding) (*db.MessageEmbedding, error) {
	query := `
	INSERT INTO message_embeddings (message_id, embedding, dimensions, vector_model, metadata)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING ` + embeddingColumns

	emb, err := scanEmbedding(p.conn.QueryRowContext(ctx, query,
		in.MessageID, pgvector.NewVector(in.Embedding), in.Dimensions, in.VectorModel, nullableMap(in.Metadata)))
	if err != nil {
		return nil, mapError("message embedding", in.MessageID, "message", in.MessageID, err)
	}

	logger.Log.WithFields(logrus.Fields{
		"message_id": emb.MessageID,
		"dimensions": emb.Dimensions,
		"model":      emb.VectorModel,
	}).Debug("Stored message embedding")
	return emb, nil
}

// GetMessageEmbedding retrieves the embedding of a message
func (p *PostgresDB) GetMessageEmbedding(ctx context.Context, messageID uuid.UUID) (*db.MessageEmbedding, error) {
	query := `SELECT ` + embeddingColumns + ` FROM message_embeddings WHERE message_id = $1`

	emb, err := scanEmbedding(p.conn.QueryRowContext(ctx, query, messageID))
	if err != nil {
		return nil, mapError("message embedding", messageID.String(), "", "", err)
	}
	return emb, nil
}

// SearchSimilarMessages ranks messages by cosine similarity of their embedding to the
// query vector. Only embeddings of the same dimensionality are compared.
func (p *PostgresDB) SearchSimilarMessages(ctx context.Context, embedding []float32, limit int) ([]db.ScoredMessage, error) {
	// Cosine distance in pgvector is: 1 - cosine_similarity
	query := `
	SELECT m.id, m.conversation_id, m.role, m.content, m.created_at, m.token_usage, m.model,
	       1 - (e.embedding <=> $1) AS similarity
	FROM message_embeddings e
	JOIN messages m ON m.id = e.message_id
	WHERE e.dimensions = $2
	ORDER BY e.embedding <=> $1
	LIMIT $3
	`

	rows, err := p.conn.QueryContext(ctx, query, pgvector.NewVector(embedding), len(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("error searching embeddings: %w", err)
	}
	defer rows.Close()

	results := []db.ScoredMessage{}
	for rows.Next() {
		var hit db.ScoredMessage
		msg, err := scanMessage(scoredRow{rows, &hit.Similarity})
		if err != nil {
			return nil, fmt.Errorf("error scanning search result: %w", err)
		}
		hit.Message = *msg
		results = append(results, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}

	logger.Log.WithField("results", len(results)).Debug("Similarity search completed")
	return results, nil
}

// scoredRow appends the similarity column to a message scan.
type scoredRow struct {
	row        rowScanner
	similarity *float64
}

func (s scoredRow) Scan(dest ...any) error {
	return s.row.Scan(append(dest, s.similarity)...)
}
