package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"ai-chat/internal/logger"
	"ai-chat/internal/repository/db"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const messageColumns = `id, conversation_id, role, content, created_at, token_usage, model`

func scanMessage(row rowScanner) (*db.Message, error) {
	var m db.Message
	var usage []byte
	var model sql.NullString
	if err := row.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt, &usage, &model); err != nil {
		return nil, err
	}
	if usage != nil {
		m.TokenUsage = &db.TokenUsage{}
		if err := json.Unmarshal(usage, m.TokenUsage); err != nil {
			return nil, fmt.Errorf("error decoding token usage: %w", err)
		}
	}
	if model.Valid {
		m.Model = &model.String
	}
	return &m, nil
}

// AddMessage inserts a message and moves the conversation's updated_at forward
func (p *PostgresDB) AddMessage(ctx context.Context, in db.NewMessage) (*db.Message, error) {
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}

	var usage any
	if in.TokenUsage != nil {
		usage = in.TokenUsage
	}

	tx, err := p.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT INTO messages (id, conversation_id, role, content, created_at, token_usage, model)
	VALUES ($1, $2, $3, $4, COALESCE($5, now()), $6, $7)
	RETURNING ` + messageColumns

	msg, err := scanMessage(tx.QueryRowContext(ctx, query, id, in.ConversationID, string(in.Role), in.Content, in.CreatedAt, usage, in.Model))
	if err != nil {
		return nil, mapError("message", id, "conversation", in.ConversationID, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = GREATEST(updated_at, $2) WHERE id = $1`,
		msg.ConversationID, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error updating conversation timestamp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing message: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"conversation_id": msg.ConversationID,
		"message_id":      msg.ID,
		"role":            msg.Role,
	}).Debug("Added message")
	return msg, nil
}

// GetMessage retrieves a message by ID
func (p *PostgresDB) GetMessage(ctx context.Context, id uuid.UUID) (*db.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	msg, err := scanMessage(p.conn.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError("message", id.String(), "", "", err)
	}
	return msg, nil
}

// ListMessages returns the messages of a conversation in creation order
func (p *PostgresDB) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]db.Message, error) {
	query := `
	SELECT ` + messageColumns + `
	FROM messages
	WHERE conversation_id = $1
	ORDER BY created_at ASC
	`

	rows, err := p.conn.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	defer rows.Close()

	messages := []db.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning message: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"count":           len(messages),
	}).Debug("Retrieved messages")
	return messages, nil
}
