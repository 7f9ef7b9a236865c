package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-chat/internal/apperr"
	"ai-chat/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddingServer(t *testing.T, vector string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-embed", req["model"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"object":"list","model":"test-embed","data":[{"object":"embedding","index":0,"embedding":%s}],"usage":{"prompt_tokens":1,"total_tokens":1}}`, vector)
	}))
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	srv := embeddingServer(t, `[0.1,0.2,0.3]`)
	defer srv.Close()

	e := NewOpenAIEmbedder(
		&config.LLMConfig{APIKey: "key", BaseURL: srv.URL, Provider: "openrouter"},
		&config.EmbeddingConfig{Model: "test-embed", Dimensions: 3},
	)

	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.1, 0.2, 0.3}, vec, 1e-6)
	assert.Equal(t, "test-embed", e.Model())
	assert.Equal(t, 3, e.Dimensions())
}

func TestOpenAIEmbedder_WrongDimensions(t *testing.T) {
	srv := embeddingServer(t, `[0.1,0.2]`)
	defer srv.Close()

	e := NewOpenAIEmbedder(
		&config.LLMConfig{APIKey: "key", BaseURL: srv.URL},
		&config.EmbeddingConfig{Model: "test-embed", Dimensions: 3},
	)

	_, err := e.Embed(context.Background(), "hello")
	assert.True(t, apperr.IsProvider(err))
}
