// Package llmutils is the llm utility package
package llmutils

import (
	"fmt"
	"time"

	"github.com/foliodocs/folio/pkg/llm"
	"github.com/foliodocs/folio/pkg/llm/ollama"
	"github.com/foliodocs/folio/pkg/llm/openai"
)

// Supported backend name constants
const (
	OpenAI = "openai"
	Ollama = "ollama"
)

// SupportedBackends returns the list of all supported backend names.
func SupportedBackends() []string {
	return []string{OpenAI, Ollama}
}

type NewProviderOpts struct {
	Backend        string
	Model          string
	EmbeddingModel string
	Dimension      int
	OpenAIBaseURL  string
	OllamaBaseURL  string
	APIKey         string
	Timeout        time.Duration
}

// NewProvider creates an llm.Provider for the given backend.
// Returns an error if the backend is not recognized.
func NewProvider(o *NewProviderOpts) (llm.Provider, error) {
	switch o.Backend {
	case OpenAI:
		return openai.New(openai.Config{
			APIKey:         o.APIKey,
			BaseURL:        o.OpenAIBaseURL,
			Model:          o.Model,
			EmbeddingModel: o.EmbeddingModel,
			Dimension:      o.Dimension,
			Timeout:        o.Timeout,
		})
	case Ollama:
		return ollama.New(ollama.Config{
			BaseURL:        o.OllamaBaseURL,
			Model:          o.Model,
			EmbeddingModel: o.EmbeddingModel,
			Dimension:      o.Dimension,
			Timeout:        o.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported backend: %q (supported: %v)", o.Backend, SupportedBackends())
	}
}
