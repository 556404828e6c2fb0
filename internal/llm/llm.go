// Package llm provides completion clients for hosted and local language models.
package llm

import (
	"context"

	"github.com/knoguchi/editorialbot/internal/answer"
)

// Options configures a completion request.
type Options struct {
	// Model overrides the client's default model when set.
	Model string

	// SystemPrompt sets the system-level instructions for the model.
	SystemPrompt string

	// Temperature controls randomness in generation (0.0 = deterministic, 1.0 = creative).
	// Nil leaves the provider default.
	Temperature *float32

	// MaxTokens limits the maximum number of tokens in the response.
	MaxTokens int
}

// Completer sends a prompt to a language model. The result keeps the shape
// the provider returned it in; answer.Format turns it into display text.
type Completer interface {
	// Complete blocks until the model has replied or ctx is done.
	Complete(ctx context.Context, prompt string, opts Options) (answer.Completion, error)

	// Model returns the default model name.
	Model() string
}

// Temperature returns a pointer for Options.Temperature.
func Temperature(t float32) *float32 {
	return &t
}

func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}
