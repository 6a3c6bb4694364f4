// Package vision talks to the image analysis model. The model is a
// black box: it takes a prompt plus encoded images and returns free
// text. Two backends are supported, a local Ollama server and any
// OpenAI-compatible endpoint. Neither guarantees well-formed output;
// parsing tolerance lives in pkg/normalize, not here.
package vision

import (
	"context"
	"fmt"
)

// Client sends a prompt with a batch of encoded images to a vision
// model and returns the raw response text.
type Client interface {
	Analyze(ctx context.Context, prompt string, images [][]byte) (string, error)
}

// Backend identifiers accepted by NewClient.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// Options configures a vision backend.
type Options struct {
	Backend string
	BaseURL string
	Model   string
	APIKey  string
}

// NewClient creates the configured backend client.
func NewClient(opts Options) (Client, error) {
	switch opts.Backend {
	case BackendOllama:
		return NewOllamaClient(opts.BaseURL, opts.Model)
	case BackendOpenAI:
		return NewOpenAIClient(opts.BaseURL, opts.Model, opts.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown vision backend: %s", opts.Backend)
	}
}
