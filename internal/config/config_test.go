package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.GRPCPort)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "editorials.json", cfg.CorpusPath)
	assert.Equal(t, "file", cfg.CorpusBackend)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, "keyword", cfg.Ranker)
	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.Equal(t, "claude-3-opus-20240229", cfg.AnthropicModel)
	assert.Equal(t, 1000, cfg.MaxTokens)
	assert.InDelta(t, 0.5, cfg.Temperature, 1e-6)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.False(t, cfg.AuthEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TOP_K", "3")
	t.Setenv("RANKER", "qdrant")
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("API_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.TopK)
	assert.Equal(t, "qdrant", cfg.Ranker)
	assert.Equal(t, "ollama", cfg.LLMProvider)
	assert.True(t, cfg.AuthEnabled())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"RANKER", "bm25"},
		{"CORPUS_BACKEND", "mongo"},
		{"LLM_PROVIDER", "openai"},
		{"TOP_K", "0"},
		{"GRPC_PORT", "not-a-number"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
