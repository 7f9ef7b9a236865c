// Package memory is an in-process implementation of db.Database. It enforces the same
// foreign keys, cascades and uniqueness rules as the Postgres schema and is used when no
// database is wanted (tests, local experiments).
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"ai-chat/internal/apperr"
	"ai-chat/internal/repository/db"
	"ai-chat/pkg/vector"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var _ db.Database = (*Store)(nil)

type Store struct {
	mu            sync.RWMutex
	conversations map[uuid.UUID]db.Conversation
	messages      map[uuid.UUID]db.Message
	// order keeps message ids per conversation in insertion order
	order      map[uuid.UUID][]uuid.UUID
	embeddings map[uuid.UUID]db.MessageEmbedding
	now        func() time.Time
}

func NewStore() *Store {
	return &Store{
		conversations: make(map[uuid.UUID]db.Conversation),
		messages:      make(map[uuid.UUID]db.Message),
		order:         make(map[uuid.UUID][]uuid.UUID),
		embeddings:    make(map[uuid.UUID]db.MessageEmbedding),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func parseID(entity, field, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.New(), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.NewValidationError(entity, field, "uuid", fmt.Sprintf("%s must be a valid UUID", field))
	}
	return id, nil
}

func copyMap(m datatypes.JSONMap) datatypes.JSONMap {
	if m == nil {
		return nil
	}
	out := make(datatypes.JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// copyContent copies the parts and their raw fields so the stored row does not share
// memory with the caller.
func copyContent(c db.Content) db.Content {
	if c.Parts == nil {
		return db.Content{}
	}
	parts := make([]db.Part, len(c.Parts))
	for i, p := range c.Parts {
		parts[i] = db.Part{Type: p.Type, Text: p.Text}
		if p.Fields != nil {
			parts[i].Fields = make(map[string]json.RawMessage, len(p.Fields))
			for k, v := range p.Fields {
				parts[i].Fields[k] = append(json.RawMessage(nil), v...)
			}
		}
	}
	return db.Content{Parts: parts}
}

func copyMessage(m db.Message) db.Message {
	m.Content = copyContent(m.Content)
	if m.TokenUsage != nil {
		u := *m.TokenUsage
		m.TokenUsage = &u
	}
	if m.Model != nil {
		model := *m.Model
		m.Model = &model
	}
	return m
}

func (s *Store) CreateConversation(ctx context.Context, in db.NewConversation) (*db.Conversation, error) {
	id, err := parseID("conversation", "id", in.ID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[id]; exists {
		return nil, &apperr.ConflictError{Entity: "conversation", ID: id.String()}
	}

	created := s.now()
	if in.CreatedAt != nil {
		created = in.CreatedAt.UTC()
	}
	updated := created
	if in.UpdatedAt != nil {
		updated = in.UpdatedAt.UTC()
	}
	if updated.Before(created) {
		return nil, apperr.NewValidationError("conversation", "updatedAt", "gtefield", "updatedAt must not be earlier than createdAt")
	}

	c := db.Conversation{
		ID:        id,
		Title:     in.Title,
		CreatedAt: created,
		UpdatedAt: updated,
		Metadata:  copyMap(in.Metadata),
	}
	s.conversations[id] = c
	return &c, nil
}

func (s *Store) GetConversation(ctx context.Context, id uuid.UUID) (*db.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, &apperr.NotFoundError{Entity: "conversation", ID: id.String()}
	}
	return &c, nil
}

// ListConversations returns conversations ordered by most recent activity.
func (s *Store) ListConversations(ctx context.Context, limit, offset int) ([]db.Conversation, error) {
	s.mu.RLock()
	all := make([]db.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		all = append(all, c)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
			return all[i].ID.String() < all[j].ID.String()
		}
		return all[i].UpdatedAt.After(all[j].UpdatedAt)
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []db.Conversation{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) UpdateConversation(ctx context.Context, id uuid.UUID, update db.ConversationUpdate) (*db.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, &apperr.NotFoundError{Entity: "conversation", ID: id.String()}
	}
	if update.Title != nil {
		c.Title = *update.Title
	}
	if update.Metadata != nil {
		c.Metadata = copyMap(update.Metadata)
	}
	if now := s.now(); now.After(c.UpdatedAt) {
		c.UpdatedAt = now
	}
	s.conversations[id] = c
	return &c, nil
}

// DeleteConversation removes the conversation with its messages and their embeddings.
func (s *Store) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return &apperr.NotFoundError{Entity: "conversation", ID: id.String()}
	}
	for _, msgID := range s.order[id] {
		delete(s.embeddings, msgID)
		delete(s.messages, msgID)
	}
	delete(s.order, id)
	delete(s.conversations, id)
	return nil
}

func (s *Store) AddMessage(ctx context.Context, in db.NewMessage) (*db.Message, error) {
	id, err := parseID("message", "id", in.ID)
	if err != nil {
		return nil, err
	}
	convID, err := uuid.Parse(in.ConversationID)
	if err != nil {
		return nil, apperr.NewValidationError("message", "conversationId", "uuid", "conversationId must be a valid UUID")
	}
	if !in.Role.Valid() {
		return nil, apperr.NewValidationError("message", "role", "oneof", fmt.Sprintf("invalid message role %q", in.Role))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[convID]
	if !ok {
		return nil, &apperr.NotFoundError{Entity: "conversation", ID: convID.String()}
	}
	if _, exists := s.messages[id]; exists {
		return nil, &apperr.ConflictError{Entity: "message", ID: id.String()}
	}

	created := s.now()
	if in.CreatedAt != nil {
		created = in.CreatedAt.UTC()
	}
	m := db.Message{
		ID:             id,
		ConversationID: convID,
		Role:           in.Role,
		Content:        in.Content,
		CreatedAt:      created,
		TokenUsage:     in.TokenUsage,
		Model:          in.Model,
	}
	m = copyMessage(m)
	s.messages[id] = m
	s.order[convID] = append(s.order[convID], id)

	if created.After(conv.UpdatedAt) {
		conv.UpdatedAt = created
		s.conversations[convID] = conv
	}
	out := copyMessage(m)
	return &out, nil
}

func (s *Store) GetMessage(ctx context.Context, id uuid.UUID) (*db.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok {
		return nil, &apperr.NotFoundError{Entity: "message", ID: id.String()}
	}
	m = copyMessage(m)
	return &m, nil
}

// ListMessages returns the messages of a conversation oldest first. An unknown
// conversation yields an empty list.
func (s *Store) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]db.Message, error) {
	s.mu.RLock()
	ids := s.order[conversationID]
	out := make([]db.Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyMessage(s.messages[id]))
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CreateMessageEmbedding(ctx context.Context, in db.NewMessageEmbedding) (*db.MessageEmbedding, error) {
	msgID, err := uuid.Parse(in.MessageID)
	if err != nil {
		return nil, apperr.NewValidationError("message embedding", "messageId", "uuid", "messageId must be a valid UUID")
	}
	if in.Dimensions <= 0 || len(in.Embedding) != in.Dimensions {
		return nil, apperr.NewValidationError("message embedding", "embedding", "eqdimensions",
			fmt.Sprintf("embedding has %d values, dimensions is %d", len(in.Embedding), in.Dimensions))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[msgID]; !ok {
		return nil, &apperr.NotFoundError{Entity: "message", ID: msgID.String()}
	}
	if _, exists := s.embeddings[msgID]; exists {
		return nil, &apperr.ConflictError{Entity: "message embedding", ID: msgID.String()}
	}

	e := db.MessageEmbedding{
		MessageID:   msgID,
		Embedding:   append([]float32(nil), in.Embedding...),
		Dimensions:  in.Dimensions,
		VectorModel: in.VectorModel,
		CreatedAt:   s.now(),
		Metadata:    copyMap(in.Metadata),
	}
	s.embeddings[msgID] = e
	return &e, nil
}

func (s *Store) GetMessageEmbedding(ctx context.Context, messageID uuid.UUID) (*db.MessageEmbedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.embeddings[messageID]
	if !ok {
		return nil, &apperr.NotFoundError{Entity: "message embedding", ID: messageID.String()}
	}
	e.Embedding = append([]float32(nil), e.Embedding...)
	return &e, nil
}

// SearchSimilarMessages ranks messages whose embedding has the query's dimensions by
// cosine similarity, best first.
func (s *Store) SearchSimilarMessages(ctx context.Context, embedding []float32, limit int) ([]db.ScoredMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]db.ScoredMessage, 0)
	for msgID, e := range s.embeddings {
		if e.Dimensions != len(embedding) {
			continue
		}
		sim, err := vector.CosineSimilarity(embedding, e.Embedding)
		if err != nil {
			return nil, fmt.Errorf("failed to score message %s: %w", msgID, err)
		}
		hits = append(hits, db.ScoredMessage{Message: s.messages[msgID], Similarity: sim})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity == hits[j].Similarity {
			return hits[i].Message.ID.String() < hits[j].Message.ID.String()
		}
		return hits[i].Similarity > hits[j].Similarity
	})
	if limit > 0 && limit < len(hits) {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
