package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/knoguchi/editorialbot/internal/answer"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is the default Gemini model.
const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiClient implements Completer for Google Gemini
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: pick(model, DefaultGeminiModel)}, nil
}

// Model returns the default model name.
func (c *GeminiClient) Model() string { return c.model }

// Complete generates content for prompt. Each part of the first candidate
// becomes a content block.
func (c *GeminiClient) Complete(ctx context.Context, prompt string, opts Options) (answer.Completion, error) {
	model := c.client.GenerativeModel(pick(opts.Model, c.model))
	if opts.Temperature != nil {
		model.SetTemperature(*opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	if opts.SystemPrompt != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(opts.SystemPrompt))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return answer.Completion{}, fmt.Errorf("failed to generate content: %w", err)
	}
	return completionFromResponse(resp), nil
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func completionFromResponse(resp *genai.GenerateContentResponse) answer.Completion {
	if resp == nil || len(resp.Candidates) == 0 {
		return answer.Unrecognized()
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return answer.Unrecognized()
	}

	blocks := make([]answer.Block, 0, len(candidate.Content.Parts))
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			blocks = append(blocks, answer.TextBlock(string(text)))
			continue
		}
		blocks = append(blocks, answer.Block{Type: fmt.Sprintf("%T", part)})
	}
	return answer.FromBlocks(blocks)
}

var _ Completer = (*GeminiClient)(nil)
