package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"ai-chat/internal/logger"
	"ai-chat/internal/repository/db"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const conversationColumns = `id, title, created_at, updated_at, metadata`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*db.Conversation, error) {
	var c db.Conversation
	var metadata datatypes.JSONMap
	if err := row.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt, &metadata); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		c.Metadata = metadata
	}
	return &c, nil
}

// nullableMap stores an absent map as SQL NULL rather than {}.
func nullableMap(m datatypes.JSONMap) any {
	if m == nil {
		return nil
	}
	return m
}

// CreateConversation inserts a conversation; id and timestamps default in the database
func (p *PostgresDB) CreateConversation(ctx context.Context, in db.NewConversation) (*db.Conversation, error) {
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `
	INSERT INTO conversations (id, title, created_at, updated_at, metadata)
	VALUES ($1, $2, COALESCE($3, now()), COALESCE($4, $3, now()), $5)
	RETURNING ` + conversationColumns

	conv, err := scanConversation(p.conn.QueryRowContext(ctx, query, id, in.Title, in.CreatedAt, in.UpdatedAt, nullableMap(in.Metadata)))
	if err != nil {
		return nil, mapError("conversation", id, "", "", err)
	}

	logger.Log.WithField("conversation_id", conv.ID).Info("Created new conversation")
	return conv, nil
}

// GetConversation retrieves a conversation by ID
func (p *PostgresDB) GetConversation(ctx context.Context, id uuid.UUID) (*db.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`

	conv, err := scanConversation(p.conn.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError("conversation", id.String(), "", "", err)
	}
	return conv, nil
}

// ListConversations returns conversations ordered by most recent activity
func (p *PostgresDB) ListConversations(ctx context.Context, limit, offset int) ([]db.Conversation, error) {
	query := `
	SELECT ` + conversationColumns + `
	FROM conversations
	ORDER BY updated_at DESC, id
	LIMIT $1 OFFSET $2
	`

	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := p.conn.QueryContext(ctx, query, limitArg, offset)
	if err != nil {
		return nil, fmt.Errorf("error querying conversations: %w", err)
	}
	defer rows.Close()

	conversations := []db.Conversation{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning conversation: %w", err)
		}
		conversations = append(conversations, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	logger.Log.WithField("count", len(conversations)).Debug("Retrieved conversations")
	return conversations, nil
}

// UpdateConversation changes the title and/or replaces the metadata
func (p *PostgresDB) UpdateConversation(ctx context.Context, id uuid.UUID, update db.ConversationUpdate) (*db.Conversation, error) {
	query := `
	UPDATE conversations
	SET title = COALESCE($2, title),
	    metadata = CASE WHEN $3::jsonb IS NULL THEN metadata ELSE $3::jsonb END,
	    updated_at = GREATEST(updated_at, now())
	WHERE id = $1
	RETURNING ` + conversationColumns

	conv, err := scanConversation(p.conn.QueryRowContext(ctx, query, id, update.Title, nullableMap(update.Metadata)))
	if err != nil {
		return nil, mapError("conversation", id.String(), "", "", err)
	}

	logger.Log.WithField("conversation_id", id).Debug("Updated conversation")
	return conv, nil
}

// DeleteConversation deletes a conversation; messages and embeddings cascade
func (p *PostgresDB) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	result, err := p.conn.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return mapError("conversation", id.String(), "", "", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking deleted rows: %w", err)
	}
	if n == 0 {
		return mapError("conversation", id.String(), "", "", sql.ErrNoRows)
	}

	logger.Log.WithFields(logrus.Fields{"conversation_id": id}).Info("Deleted conversation")
	return nil
}
