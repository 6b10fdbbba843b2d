package openai

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddingsServer(t *testing.T, vector []float32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": vector},
			},
			"model": "nomic-embed-text",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_EmbedNormalisesAndLearnsDimension(t *testing.T) {
	srv := embeddingsServer(t, []float32{3, 4, 0})
	c, err := NewClient(Config{BaseURL: srv.URL + "/v1", APIKey: "test-key", Model: "nomic-embed-text"})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Dimension())

	v, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, v, 3)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.Equal(t, 3, c.Dimension())

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestClient_DimensionMismatch(t *testing.T) {
	srv := embeddingsServer(t, []float32{1, 0})
	c, err := NewClient(Config{BaseURL: srv.URL + "/v1", APIKey: "test-key", Model: "text-embedding-3-small"})
	require.NoError(t, err)
	assert.Equal(t, 1536, c.Dimension())

	_, err = c.Embed(context.Background(), "hello")
	assert.Error(t, err)
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Config{Model: "text-embedding-3-small"})
	assert.Error(t, err)
}

func TestClient_RejectsEmptyText(t *testing.T) {
	c, err := NewClient(Config{APIKey: "k", RequestsPerMinute: 60})
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), "")
	assert.Error(t, err)
}
