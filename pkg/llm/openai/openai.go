// Package openai implements pkg/llm's Provider against OpenAI's chat and
// embedding APIs.
package openai

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
	DefaultModel = "gpt-4o-mini"

	// DefaultEmbeddingModel is the default model used for embeddings.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// DefaultDimension is the embedding dimension of DefaultEmbeddingModel.
	DefaultDimension = 1536

	// DefaultBaseURL is the default OpenAI API URL.
	DefaultBaseURL = "https://api.openai.com"

	// DefaultTimeout is the default per-call HTTP timeout.
	DefaultTimeout = 120 * time.Second
)

// Provider wraps OpenAI's chat completion and embedding APIs.
type Provider struct {
	baseURL    string
	apiKey     string
	model      string
	embedModel string
	dimension  int
	httpClient *http.Client
}

// Config holds configuration for the OpenAI provider.
type Config struct {
	// APIKey is the OpenAI API key. Required.
	APIKey string

	// BaseURL is the OpenAI API URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the completion model. Defaults to DefaultModel if empty.
	Model string

	// EmbeddingModel is the embedding model. Defaults to DefaultEmbeddingModel if empty.
	EmbeddingModel string

	// Dimension is the embedding dimension. Defaults to DefaultDimension if zero.
	Dimension int

	// Timeout is the per-call HTTP timeout. Defaults to DefaultTimeout if zero.
	Timeout time.Duration
}

// New creates a new OpenAI provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key required")
	}

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
		apiKey:     cfg.APIKey,
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
	}
	if opts.Temperature > 0 {
		reqBody.Temperature = &opts.Temperature
	}
	if opts.MaxTokens > 0 {
		reqBody.MaxTokens = &opts.MaxTokens
	}

	var chatResp chatResponse
	if err := p.post(ctx, "/v1/chat/completions", reqBody, &chatResp); err != nil {
		return "", err
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no completion choices returned", llm.ErrUnavailable)
	}

	return chatResp.Choices[0].Message.Content, nil
}

// Embed converts text into a vector embedding.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := embedRequest{
		Model: p.embedModel,
		Input: text,
	}

	var embedResp embedResponse
	if err := p.post(ctx, "/v1/embeddings", reqBody, &embedResp); err != nil {
		return nil, err
	}

	if len(embedResp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", llm.ErrUnavailable)
	}

	return embedResp.Data[0].Embedding, nil
}

// Dimension returns the embedding dimension this provider produces.
func (p *Provider) Dimension() int {
	return p.dimension
}

// Name returns "openai".
func (p *Provider) Name() string {
	return "openai"
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
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return wrapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// wrapTransportError maps transport-level failures onto the llm sentinels.
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

// statusError maps non-200 responses onto the llm sentinels, pulling the
// message out of OpenAI's error envelope when present.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	msg := strings.TrimSpace(string(body))
	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: openai returned status %d: %s", llm.ErrRateLimited, resp.StatusCode, msg)
	}

	return fmt.Errorf("%w: openai returned status %d: %s", llm.ErrUnavailable, resp.StatusCode, msg)
}

// Ensure Provider implements llm.Provider
var _ llm.Provider = (*Provider)(nil)
