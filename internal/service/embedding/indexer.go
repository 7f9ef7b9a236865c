package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ai-chat/internal/apperr"
	"ai-chat/internal/logger"
	"ai-chat/internal/repository/db"
	"ai-chat/internal/service/llm"
	"ai-chat/pkg/validation"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"gorm.io/datatypes"
)

// ErrDisabled is returned when no embedder is configured.
var ErrDisabled = errors.New("embeddings are not configured")

// Indexer creates message embeddings in the background. Messages are queued without
// blocking the caller and embedded by a fixed set of workers.
type Indexer struct {
	db        db.Database
	embedder  llm.Embedder
	validator *validation.SchemaValidator
	timeout   time.Duration

	jobs   chan db.Message
	wg     conc.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewIndexer starts workers goroutines reading from a queue of queueSize messages.
func NewIndexer(database db.Database, embedder llm.Embedder, validator *validation.SchemaValidator, workers, queueSize int, timeout time.Duration) *Indexer {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	ix := &Indexer{
		db:        database,
		embedder:  embedder,
		validator: validator,
		timeout:   timeout,
		jobs:      make(chan db.Message, queueSize),
	}

	for i := 0; i < workers; i++ {
		ix.wg.Go(ix.work)
	}

	logger.Log.WithFields(logrus.Fields{
		"workers":    workers,
		"queue_size": queueSize,
		"model":      embedder.Model(),
	}).Info("Embedding indexer started")

	return ix
}

func (ix *Indexer) work() {
	for msg := range ix.jobs {
		ctx := context.Background()
		var cancel context.CancelFunc = func() {}
		if ix.timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, ix.timeout)
		}

		if err := ix.IndexMessage(ctx, msg); err != nil {
			logger.Log.WithError(err).WithField("message_id", msg.ID).Error("Failed to index message")
		}
		cancel()
	}
}

// Enqueue schedules msg for indexing. It reports false when the message was dropped
// because the queue is full or the indexer is closed. A nil Indexer drops everything.
func (ix *Indexer) Enqueue(msg db.Message) bool {
	if ix == nil {
		return false
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.closed {
		return false
	}

	select {
	case ix.jobs <- msg:
		return true
	default:
		logger.Log.WithField("message_id", msg.ID).Warn("Embedding queue full, dropping message")
		return false
	}
}

// Close stops accepting messages and waits for the queued ones to be processed.
func (ix *Indexer) Close() {
	if ix == nil {
		return
	}

	ix.mu.Lock()
	if ix.closed {
		ix.mu.Unlock()
		return
	}
	ix.closed = true
	close(ix.jobs)
	ix.mu.Unlock()

	ix.wg.Wait()
	logger.Log.Info("Embedding indexer stopped")
}

// IndexMessage embeds the text of msg and stores the vector. Messages without text are
// skipped and an existing embedding is left as is.
func (ix *Indexer) IndexMessage(ctx context.Context, msg db.Message) error {
	text := strings.TrimSpace(msg.Content.Text())
	if text == "" {
		logger.Log.WithField("message_id", msg.ID).Debug("Message has no text, skipping embedding")
		return nil
	}

	vec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed message: %w", err)
	}

	in := db.NewMessageEmbedding{
		MessageID:   msg.ID.String(),
		Embedding:   vec,
		Dimensions:  len(vec),
		VectorModel: ix.embedder.Model(),
		Metadata: datatypes.JSONMap{
			"role":       string(msg.Role),
			"characters": len(text),
		},
	}
	if err := ix.validator.ValidateMessageEmbeddingInsert(&in); err != nil {
		return err
	}

	if _, err := ix.db.CreateMessageEmbedding(ctx, in); err != nil {
		if apperr.IsConflict(err) {
			logger.Log.WithField("message_id", msg.ID).Debug("Message already indexed")
			return nil
		}
		return fmt.Errorf("failed to store embedding: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"message_id": msg.ID,
		"dimensions": len(vec),
	}).Debug("Message indexed")
	return nil
}
