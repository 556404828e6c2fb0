package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/knoguchi/editorialbot/internal/answer"
	"github.com/tidwall/gjson"
)

const (
	// DefaultAnthropicBaseURL is the public Anthropic API endpoint.
	DefaultAnthropicBaseURL = "https://api.anthropic.com"

	// DefaultAnthropicModel is the model the bot was first built against.
	DefaultAnthropicModel = "claude-3-opus-20240229"

	anthropicVersion = "2023-06-01"
)

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// AnthropicOption is a functional option for configuring AnthropicClient.
type AnthropicOption func(*AnthropicClient)

// WithAnthropicBaseURL sets a custom API base URL.
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(c *AnthropicClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithAnthropicModel sets the default model.
func WithAnthropicModel(model string) AnthropicOption {
	return func(c *AnthropicClient) {
		c.model = model
	}
}

// WithAnthropicHTTPClient sets a custom HTTP client.
func WithAnthropicHTTPClient(client *http.Client) AnthropicOption {
	return func(c *AnthropicClient) {
		c.httpClient = client
	}
}

// NewAnthropicClient creates a Messages API client.
func NewAnthropicClient(apiKey string, opts ...AnthropicOption) *AnthropicClient {
	c := &AnthropicClient{
		baseURL: DefaultAnthropicBaseURL,
		apiKey:  apiKey,
		model:   DefaultAnthropicModel,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float32           `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

// Model returns the default model name.
func (c *AnthropicClient) Model() string { return c.model }

// Complete sends prompt as a single user message. The reply's content blocks
// are returned as a structured completion.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string, opts Options) (answer.Completion, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	reqBody := anthropicRequest{
		Model:     pick(opts.Model, c.model),
		MaxTokens: maxTokens,
		System:    opts.SystemPrompt,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	}
	reqBody.Temperature = opts.Temperature

	body, err := json.Marshal(reqBody)
	if err != nil {
		return answer.Completion{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return answer.Completion{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return answer.Completion{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return answer.Completion{}, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(data, "error.message").String()
		if msg == "" {
			msg = string(data)
		}
		return answer.Completion{}, fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, msg)
	}

	return answer.FromJSON(data), nil
}

var _ Completer = (*AnthropicClient)(nil)
