package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOllamaServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Prompt == "fail" {
			http.Error(w, "model not loaded", http.StatusInternalServerError)
			return
		}
		// Vector encodes the prompt length so callers can check ordering.
		_ = json.NewEncoder(w).Encode(ollamaResponse{Embedding: []float64{float64(len(req.Prompt)), 0.5}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaEmbedder_Embed(t *testing.T) {
	var calls atomic.Int32
	srv := newOllamaServer(t, &calls)
	e := NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL + "/"})

	vec, err := e.Embed(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 0.5}, vec)
	assert.Equal(t, 768, e.Dimension())
	assert.Equal(t, DefaultOllamaModel, e.ModelName())
}

func TestOllamaEmbedder_EmbedBatchKeepsOrder(t *testing.T) {
	var calls atomic.Int32
	srv := newOllamaServer(t, &calls)
	e := NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL, BatchConcurrency: 2})

	texts := []string{"a", "bbbb", "cc", "ddddddd", "eee"}
	vecs, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vecs[i][0])
	}
	assert.Equal(t, int32(len(texts)), calls.Load())
}

func TestOllamaEmbedder_EmbedBatchError(t *testing.T) {
	var calls atomic.Int32
	srv := newOllamaServer(t, &calls)
	e := NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL})

	_, err := e.EmbedBatch(context.Background(), []string{"ok", "fail"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestOllamaEmbedder_EmptyBatch(t *testing.T) {
	e := NewOllamaEmbedder(OllamaConfig{})
	vecs, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestDimensionFor(t *testing.T) {
	assert.Equal(t, 1024, DimensionFor("mxbai-embed-large"))
	assert.Equal(t, 768, DimensionFor("something-new"))
	assert.Equal(t, 384, NewOllamaEmbedder(OllamaConfig{Model: "all-minilm"}).Dimension())
}

func TestCached_ServesRepeatsFromCache(t *testing.T) {
	var calls atomic.Int32
	srv := newOllamaServer(t, &calls)
	c := NewCached(NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL}), 0, nil)
	ctx := context.Background()

	first, err := c.Embed(ctx, "what about taxes")
	require.NoError(t, err)
	second, err := c.Embed(ctx, "what about taxes")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
	assert.Greater(t, c.HitRate(), 0.0)

	_, err = c.Embed(ctx, "fail")
	require.Error(t, err)
	_, err = c.Embed(ctx, "fail")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "errors are not cached")
}

func TestVectorEncoding(t *testing.T) {
	vec := []float32{0, -1.5, 3.25, 1e-7}
	assert.Equal(t, vec, decodeVector(encodeVector(vec)))
}
