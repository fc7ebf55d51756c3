// Package llm defines the language-model provider abstraction used by the
// chunker, the ingestion pipeline, and the agent.
//
// A Provider bundles completion and embedding for a single backend. Exactly
// one provider is active per process; its embedding dimension is constant for
// the lifetime of the instance, which is what lets the vector index enforce
// its dimension contract.
package llm

import "context"

// Provider is a language-model backend that can complete prompts and embed text.
type Provider interface {
	// Complete generates a completion for the given prompt.
	Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error)

	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding dimension this provider produces.
	// The value is constant for the lifetime of the provider instance.
	Dimension() int

	// Name returns the canonical backend name ("openai" or "ollama").
	Name() string
}

// CompleteOptions carries per-call generation parameters.
type CompleteOptions struct {
	// Temperature controls sampling randomness. Zero means the backend default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means no explicit cap.
	MaxTokens int

	// System is an optional system prompt prepended to the conversation.
	System string
}
