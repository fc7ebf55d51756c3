// Package ollama implements pkg/llm's Provider against a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/foliodocs/folio/pkg/llm"
)

const (
	// DefaultModel is the default completion model.
	DefaultModel = "mistral"

	// DefaultEmbeddingModel is the default model used for embeddings.
	DefaultEmbeddingModel = "nomic-embed-text"

	// DefaultDimension is the embedding dimension of DefaultEmbeddingModel.
	DefaultDimension = 768

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultTimeout is the default per-call HTTP timeout.
	DefaultTimeout = 120 * time.Second
)

// Provider wraps Ollama's chat and embedding APIs.
type Provider struct {
	baseURL    string
	model      string
	embedModel string
	dimension  int
	httpClient *http.Client
}

// Config holds configuration for the Ollama provider.
type Config struct {
	// BaseURL is the Ollama API URL (e.g., "http://localhost:11434").
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the completion model to use. Defaults to DefaultModel if empty.
	Model string

	// EmbeddingModel is the embedding model to use (e.g., "nomic-embed-text",
	// "all-minilm"). Defaults to DefaultEmbeddingModel if empty.
	EmbeddingModel string

	// Dimension is the embedding dimension. Defaults to DefaultDimension if zero.
	Dimension int

	// Timeout is the per-call HTTP timeout. Defaults to DefaultTimeout if zero.
	Timeout time.Duration
}

// New creates a new Ollama provider.
func New(cfg Config) (*Provider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	embedModel := cfg.EmbeddingModel
	if embedModel == "" {
		embedModel = DefaultEmbeddingModel
	}

	dimension := cfg.Dimension
	if dimension == 0 {
		dimension = DefaultDimension
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Provider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		embedModel: embedModel,
		dimension:  dimension,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Complete generates a completion for the given prompt.
func (p *Provider) Complete(ctx context.Context, prompt string, opts llm.CompleteOptions) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if opts.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: opts.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	reqBody := chatRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   false,
	}
	if opts.Temperature > 0 || opts.MaxTokens > 0 {
		reqBody.Options = &chatOptions{}
		if opts.Temperature > 0 {
			reqBody.Options.Temperature = &opts.Temperature
		}
		if opts.MaxTokens > 0 {
			reqBody.Options.NumPredict = &opts.MaxTokens
		}
	}

	var chatResp chatResponse
	if err := p.post(ctx, "/api/chat", reqBody, &chatResp); err != nil {
		return "", err
	}

	return chatResp.Message.Content, nil
}

// Embed converts text into a vector embedding.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := embedRequest{
		Model: p.embedModel,
		Input: text,
	}

	var embedResp embedResponse
	if err := p.post(ctx, "/api/embed", reqBody, &embedResp); err != nil {
		return nil, err
	}

	if len(embedResp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", llm.ErrUnavailable)
	}

	return embedResp.Embeddings[0], nil
}

// Dimension returns the embedding dimension this provider produces.
func (p *Provider) Dimension() int {
	return p.dimension
}

// Name returns "ollama".
func (p *Provider) Name() string {
	return "ollama"
}

// post sends a JSON request to the given API path and decodes the response
// into out. HTTP and transport failures are mapped onto the llm sentinels.
func (p *Provider) post(ctx context.Context, path string, in, out any) error {
	jsonBody, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return wrapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: ollama returned status %d: %s", llm.ErrRateLimited, resp.StatusCode, string(body))
		}
		return fmt.Errorf("%w: ollama returned status %d: %s", llm.ErrUnavailable, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// wrapTransportError maps transport-level failures onto the llm sentinels.
// Connection refused (no local Ollama server) lands on ErrUnavailable.
func wrapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", llm.ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", llm.ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
}

// Ensure Provider implements llm.Provider
var _ llm.Provider = (*Provider)(nil)
