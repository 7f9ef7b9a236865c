package embedding

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"ai-chat/internal/repository/db"
	"ai-chat/internal/repository/memory"
	"ai-chat/internal/testutil"
	"ai-chat/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedEmbedder(vec []float32) *testutil.MockEmbedder {
	return &testutil.MockEmbedder{
		Dims: len(vec),
		EmbedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return vec, nil
		},
	}
}

func seed(t *testing.T, store *memory.Store, text string) *db.Message {
	t.Helper()
	ctx := context.Background()
	conv, err := store.CreateConversation(ctx, db.NewConversation{Title: "Test"})
	require.NoError(t, err)
	msg, err := store.AddMessage(ctx, db.NewMessage{
		ConversationID: conv.ID.String(),
		Role:           db.RoleUser,
		Content:        db.TextContent(text),
	})
	require.NoError(t, err)
	return msg
}

func TestIndexMessage(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	msg := seed(t, store, "hello there")

	ix := &Indexer{db: store, embedder: fixedEmbedder([]float32{1, 0, 0}), validator: validation.NewSchemaValidator()}
	require.NoError(t, ix.IndexMessage(ctx, *msg))

	emb, err := store.GetMessageEmbedding(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, emb.Dimensions)
	assert.Equal(t, "mock-embedding", emb.VectorModel)
	assert.Equal(t, "user", emb.Metadata["role"])

	// A second pass hits the existing row and is not an error.
	assert.NoError(t, ix.IndexMessage(ctx, *msg))
}

func TestIndexMessage_SkipsEmptyText(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	msg := seed(t, store, "   ")

	called := false
	embedder := &testutil.MockEmbedder{
		Dims: 3,
		EmbedFunc: func(ctx context.Context, text string) ([]float32, error) {
			called = true
			return []float32{1, 2, 3}, nil
		},
	}

	ix := &Indexer{db: store, embedder: embedder, validator: validation.NewSchemaValidator()}
	require.NoError(t, ix.IndexMessage(ctx, *msg))
	assert.False(t, called)

	_, err := store.GetMessageEmbedding(ctx, msg.ID)
	assert.Error(t, err)
}

func TestIndexMessage_EmbedError(t *testing.T) {
	store := memory.NewStore()
	msg := seed(t, store, "hello")

	embedder := &testutil.MockEmbedder{
		EmbedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("boom")
		},
	}
	ix := &Indexer{db: store, embedder: embedder, validator: validation.NewSchemaValidator()}

	err := ix.IndexMessage(context.Background(), *msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestIndexer_EnqueueAndClose(t *testing.T) {
	store := memory.NewStore()
	first := seed(t, store, "first")
	second := seed(t, store, "second")

	var calls atomic.Int32
	embedder := &testutil.MockEmbedder{
		Dims: 2,
		EmbedFunc: func(ctx context.Context, text string) ([]float32, error) {
			calls.Add(1)
			return []float32{0.5, 0.5}, nil
		},
	}

	ix := NewIndexer(store, embedder, validation.NewSchemaValidator(), 2, 10, time.Second)
	assert.True(t, ix.Enqueue(*first))
	assert.True(t, ix.Enqueue(*second))
	ix.Close()
	ix.Close()

	assert.Equal(t, int32(2), calls.Load())
	for _, m := range []*db.Message{first, second} {
		_, err := store.GetMessageEmbedding(context.Background(), m.ID)
		assert.NoError(t, err)
	}

	assert.False(t, ix.Enqueue(*first), "closed indexer drops messages")
}

func TestIndexer_Nil(t *testing.T) {
	var ix *Indexer
	assert.False(t, ix.Enqueue(db.Message{}))
	ix.Close()
}
