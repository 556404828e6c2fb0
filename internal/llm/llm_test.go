package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/knoguchi/editorialbot/internal/answer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestAnthropicClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultAnthropicModel, req.Model)
		assert.Equal(t, 1000, req.MaxTokens)
		require.NotNil(t, req.Temperature)
		assert.InDelta(t, 0.5, *req.Temperature, 1e-6)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "What about taxes?", req.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant",
			"content":[{"type":"text","text":"Cut them. Source: http://x/1"}],
			"stop_reason":"end_turn"}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient("test-key", WithAnthropicBaseURL(srv.URL+"/"))
	got, err := c.Complete(context.Background(), "What about taxes?", Options{MaxTokens: 1000, Temperature: Temperature(0.5)})
	require.NoError(t, err)

	assert.Equal(t, answer.KindStructuredBlocks, got.Kind)
	assert.Equal(t, "Cut them. Source: http://x/1", answer.ExtractText(got))
	assert.Equal(t, DefaultAnthropicModel, c.Model())
}

func TestAnthropicClient_SendsZeroTemperature(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		body = string(data)
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"ok"}]}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient("k", WithAnthropicBaseURL(srv.URL))
	_, err := c.Complete(context.Background(), "q", Options{MaxTokens: 10, Temperature: Temperature(0)})
	require.NoError(t, err)
	require.True(t, gjson.Get(body, "temperature").Exists(), body)
	assert.Equal(t, 0.0, gjson.Get(body, "temperature").Float())

	_, err = c.Complete(context.Background(), "q", Options{MaxTokens: 10})
	require.NoError(t, err)
	assert.False(t, gjson.Get(body, "temperature").Exists(), "nil keeps the provider default")
}

func TestAnthropicClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient("k", WithAnthropicBaseURL(srv.URL), WithAnthropicModel("claude-x"))
	_, err := c.Complete(context.Background(), "q", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
	assert.Contains(t, err.Error(), "slow down")
	assert.Equal(t, "claude-x", c.Model())
}

func TestOllamaClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mistral", req.Model)
		assert.False(t, req.Stream)
		assert.EqualValues(t, 200, req.Options["num_predict"])
		temp, ok := req.Options["temperature"]
		require.True(t, ok, "zero temperature is sent")
		assert.EqualValues(t, 0, temp)

		_ = json.NewEncoder(w).Encode(ollamaResponse{Model: req.Model, Response: "A local answer.", Done: true})
	}))
	defer srv.Close()

	c := NewOllamaClient(WithBaseURL(srv.URL), WithModel("llama3.2"))
	got, err := c.Complete(context.Background(), "q", Options{Model: "mistral", MaxTokens: 200, Temperature: Temperature(0)})
	require.NoError(t, err)
	assert.Equal(t, answer.KindPlainText, got.Kind)
	assert.Equal(t, "A local answer.", got.Text)
}

func TestOllamaClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaClient(WithBaseURL(srv.URL)).Complete(context.Background(), "q", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestCompletionFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role:  "model",
				Parts: []genai.Part{genai.Text("Hello "), genai.Blob{MIMEType: "image/png"}, genai.Text("there")},
			},
		}},
	}
	got := completionFromResponse(resp)
	assert.Equal(t, answer.KindStructuredBlocks, got.Kind)
	require.Len(t, got.Blocks, 3)
	assert.Nil(t, got.Blocks[1].Text)
	assert.Equal(t, "Hello there", answer.ExtractText(got))

	assert.Equal(t, answer.KindUnrecognized, completionFromResponse(&genai.GenerateContentResponse{}).Kind)
	assert.Equal(t, answer.KindUnrecognized, completionFromResponse(nil).Kind)
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), "", "")
	require.Error(t, err)
}
