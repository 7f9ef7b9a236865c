package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ai-chat/internal/apperr"
	"ai-chat/internal/repository/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedConversation(t *testing.T, s *Store, title string) *db.Conversation {
	t.Helper()
	conv, err := s.CreateConversation(context.Background(), db.NewConversation{Title: title})
	require.NoError(t, err)
	return conv
}

func seedMessage(t *testing.T, s *Store, convID uuid.UUID, role db.Role, text string) *db.Message {
	t.Helper()
	msg, err := s.AddMessage(context.Background(), db.NewMessage{
		ConversationID: convID.String(),
		Role:           role,
		Content:        db.TextContent(text),
	})
	require.NoError(t, err)
	return msg
}

func TestStore_ConversationWithOneMessage(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	conv := seedConversation(t, s, "Test")
	seedMessage(t, s, conv.ID, db.RoleUser, "hi")

	convs, err := s.ListConversations(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "Test", convs[0].Title)

	msgs, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, conv.ID, msgs[0].ConversationID)
	assert.Equal(t, "hi", msgs[0].Content.Text())
}

func TestStore_DeleteConversationCascades(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	conv := seedConversation(t, s, "Test")
	msg := seedMessage(t, s, conv.ID, db.RoleUser, "hi")
	_, err := s.CreateMessageEmbedding(ctx, db.NewMessageEmbedding{
		MessageID:   msg.ID.String(),
		Embedding:   []float32{1, 0, 0},
		Dimensions:  3,
		VectorModel: "test-embed",
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteConversation(ctx, conv.ID))

	msgs, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = s.GetMessage(ctx, msg.ID)
	assert.True(t, apperr.IsNotFound(err))

	_, err = s.GetMessageEmbedding(ctx, msg.ID)
	assert.True(t, apperr.IsNotFound(err))

	err = s.DeleteConversation(ctx, conv.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestStore_AddMessage(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	conv := seedConversation(t, s, "Test")

	tests := []struct {
		name      string
		msg       db.NewMessage
		checkErr  func(error) bool
		wantError bool
	}{
		{
			name: "valid message",
			msg: db.NewMessage{
				ConversationID: conv.ID.String(),
				Role:           db.RoleAssistant,
				Content:        db.TextContent("hello"),
			},
		},
		{
			name: "unknown conversation",
			msg: db.NewMessage{
				ConversationID: uuid.NewString(),
				Role:           db.RoleUser,
				Content:        db.TextContent("hi"),
			},
			wantError: true,
			checkErr:  apperr.IsNotFound,
		},
		{
			name: "malformed conversation id",
			msg: db.NewMessage{
				ConversationID: "not-a-uuid",
				Role:           db.RoleUser,
				Content:        db.TextContent("hi"),
			},
			wantError: true,
			checkErr:  apperr.IsValidation,
		},
		{
			name: "unknown role",
			msg: db.NewMessage{
				ConversationID: conv.ID.String(),
				Role:           db.Role("robot"),
				Content:        db.TextContent("hi"),
			},
			wantError: true,
			checkErr:  apperr.IsValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddMessage(ctx, tt.msg)
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, tt.checkErr(err), "unexpected error kind: %v", err)
		})
	}
}

func TestStore_AddMessageBumpsConversation(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	created := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	conv, err := s.CreateConversation(ctx, db.NewConversation{Title: "Old", CreatedAt: &created})
	require.NoError(t, err)

	later := created.Add(time.Hour)
	_, err = s.AddMessage(ctx, db.NewMessage{
		ConversationID: conv.ID.String(),
		Role:           db.RoleUser,
		Content:        db.TextContent("ping"),
		CreatedAt:      &later,
	})
	require.NoError(t, err)

	got, err := s.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(later))
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestStore_ListMessagesOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	conv := seedConversation(t, s, "Order")

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, text := range []string{"third", "first", "second"} {
		at := base.Add(time.Duration([]int{3, 1, 2}[i]) * time.Minute)
		_, err := s.AddMessage(ctx, db.NewMessage{
			ConversationID: conv.ID.String(),
			Role:           db.RoleUser,
			Content:        db.TextContent(text),
			CreatedAt:      &at,
		})
		require.NoError(t, err)
	}

	msgs, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Content.Text())
	assert.Equal(t, "second", msgs[1].Content.Text())
	assert.Equal(t, "third", msgs[2].Content.Text())
}

func TestStore_CreateMessageEmbedding(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	conv := seedConversation(t, s, "Embeddings")
	msg := seedMessage(t, s, conv.ID, db.RoleUser, "hi")

	emb, err := s.CreateMessageEmbedding(ctx, db.NewMessageEmbedding{
		MessageID:   msg.ID.String(),
		Embedding:   []float32{0.1, 0.2},
		Dimensions:  2,
		VectorModel: "test-embed",
	})
	require.NoError(t, err)
	assert.Equal(t, len(emb.Embedding), emb.Dimensions)

	_, err = s.CreateMessageEmbedding(ctx, db.NewMessageEmbedding{
		MessageID:   msg.ID.String(),
		Embedding:   []float32{0.3, 0.4},
		Dimensions:  2,
		VectorModel: "test-embed",
	})
	assert.True(t, apperr.IsConflict(err), "second embedding must conflict, got %v", err)

	_, err = s.CreateMessageEmbedding(ctx, db.NewMessageEmbedding{
		MessageID:   uuid.NewString(),
		Embedding:   []float32{0.3, 0.4},
		Dimensions:  2,
		VectorModel: "test-embed",
	})
	assert.True(t, apperr.IsNotFound(err), "embedding for a missing message, got %v", err)

	other := seedMessage(t, s, conv.ID, db.RoleAssistant, "hello")
	_, err = s.CreateMessageEmbedding(ctx, db.NewMessageEmbedding{
		MessageID:   other.ID.String(),
		Embedding:   []float32{0.3, 0.4, 0.5},
		Dimensions:  2,
		VectorModel: "test-embed",
	})
	assert.True(t, apperr.IsValidation(err), "length mismatch, got %v", err)
}

func TestStore_SearchSimilarMessages(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	conv := seedConversation(t, s, "Search")

	vectors := map[string][]float32{
		"cats":   {1, 0, 0},
		"dogs":   {0.8, 0.6, 0},
		"stocks": {0, 0, 1},
	}
	for text, vec := range vectors {
		msg := seedMessage(t, s, conv.ID, db.RoleUser, text)
		_, err := s.CreateMessageEmbedding(ctx, db.NewMessageEmbedding{
			MessageID:   msg.ID.String(),
			Embedding:   vec,
			Dimensions:  3,
			VectorModel: "test-embed",
		})
		require.NoError(t, err)
	}

	hits, err := s.SearchSimilarMessages(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "cats", hits[0].Message.Content.Text())
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
	assert.Equal(t, "dogs", hits[1].Message.Content.Text())
	assert.InDelta(t, 0.8, hits[1].Similarity, 1e-6)

	hits, err = s.SearchSimilarMessages(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits, "vectors of other dimensions are not compared")
}

func TestStore_UpdateConversation(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	conv := seedConversation(t, s, "Before")

	title := "After"
	got, err := s.UpdateConversation(ctx, conv.ID, db.ConversationUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "After", got.Title)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	_, err = s.UpdateConversation(ctx, uuid.New(), db.ConversationUpdate{Title: &title})
	assert.True(t, apperr.IsNotFound(err))
}

func TestStore_ListConversationsPaging(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		_, err := s.CreateConversation(ctx, db.NewConversation{Title: "c", CreatedAt: &at})
		require.NoError(t, err)
	}

	page, err := s.ListConversations(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, page[0].UpdatedAt.After(page[1].UpdatedAt))
	assert.True(t, page[0].UpdatedAt.Equal(base.Add(3*time.Hour)))

	page, err = s.ListConversations(ctx, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, page)

	page, err = s.ListConversations(ctx, 2, -3)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, page[0].UpdatedAt.Equal(base.Add(4*time.Hour)))
}

func TestStore_AddMessageCopiesContent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	conv := seedConversation(t, s, "Test")

	in := db.NewMessage{
		ConversationID: conv.ID.String(),
		Role:           db.RoleAssistant,
		Content: db.Content{Parts: []db.Part{
			db.TextPart("hi"),
			db.ToolPart("some", "call_1", json.RawMessage(`{"query":"x"}`), json.RawMessage(`{"result":"Some result"}`)),
		}},
	}
	msg, err := s.AddMessage(ctx, in)
	require.NoError(t, err)

	in.Content.Parts[0].Text = "changed"
	in.Content.Parts[1].Fields["state"] = json.RawMessage(`"input-available"`)
	msg.Content.Parts[0].Text = "changed too"

	stored, err := s.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", stored.Content.Parts[0].Text)
	var state string
	_, err = stored.Content.Parts[1].Field("state", &state)
	require.NoError(t, err)
	assert.Equal(t, "output-available", state)

	stored.Content.Parts[0].Text = "mutated"
	msgs, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", msgs[0].Content.Parts[0].Text)
}
