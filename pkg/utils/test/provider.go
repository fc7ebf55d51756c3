package testutils

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/foliodocs/folio/pkg/llm"
)

// MockProvider is a test provider with scriptable completions and
// predictable embeddings.
type MockProvider struct {
	// CompleteText is returned by successful Complete calls.
	CompleteText string

	// CompleteErrs is consumed one entry per Complete call before
	// successes begin; nil entries mean success.
	CompleteErrs []error

	// Embeddings maps input text to a fixed embedding.
	Embeddings map[string][]float32

	// FailEmbedOn causes Embed to return an error when the input text
	// contains the value.
	FailEmbedOn string

	// EmbedErr causes every Embed call to fail.
	EmbedErr error

	// Dim is the reported embedding dimension.
	Dim int

	// Delay is how long Complete holds before returning, for exercising
	// concurrency bounds.
	Delay time.Duration

	mu            sync.Mutex
	completeCalls int
	embedCalls    int
	prompts       []string
	options       []llm.CompleteOptions
	inFlight      int
	maxInFlight   int
}

// NewMockProvider creates a new mock provider with a 3-dimension embedder.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Embeddings: make(map[string][]float32),
		Dim:        3,
	}
}

func (m *MockProvider) Complete(ctx context.Context, prompt string, opts llm.CompleteOptions) (string, error) {
	m.mu.Lock()
	m.completeCalls++
	m.prompts = append(m.prompts, prompt)
	m.options = append(m.options, opts)
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	var err error
	if len(m.CompleteErrs) > 0 {
		err = m.CompleteErrs[0]
		m.CompleteErrs = m.CompleteErrs[1:]
	}
	text := m.CompleteText
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	m.mu.Lock()
	m.inFlight--
	m.mu.Unlock()

	if err != nil {
		return "", err
	}
	if text == "" {
		text = "mock completion"
	}
	return text, nil
}

func (m *MockProvider) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.embedCalls++
	m.mu.Unlock()

	if m.EmbedErr != nil {
		return nil, m.EmbedErr
	}

	if m.FailEmbedOn != "" && strings.Contains(text, m.FailEmbedOn) {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	// Return a default embedding of the reported dimension for any text
	emb := make([]float32, m.Dimension())
	for i := range emb {
		emb[i] = 0.1 * float32(i+1)
	}
	return emb, nil
}

func (m *MockProvider) Dimension() int {
	if m.Dim == 0 {
		return 3
	}
	return m.Dim
}

func (m *MockProvider) Name() string {
	return "mock"
}

// CompleteCalls reports how many times Complete was called.
func (m *MockProvider) CompleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completeCalls
}

// EmbedCalls reports how many times Embed was called.
func (m *MockProvider) EmbedCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embedCalls
}

// Prompts returns the prompts passed to Complete, in call order.
func (m *MockProvider) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// Options returns the options passed to Complete, in call order.
func (m *MockProvider) Options() []llm.CompleteOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.CompleteOptions, len(m.options))
	copy(out, m.options)
	return out
}

// MaxInFlight reports the highest number of concurrent Complete calls seen.
func (m *MockProvider) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}
