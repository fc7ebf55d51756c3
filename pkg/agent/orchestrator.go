// Package agent answers questions over the indexed corpus in two stages:
// retrieve (embed the question, query the vector index) and synthesize
// (generate an answer grounded in the retrieved evidence).
//
// The two stages are fixed. Retrieval failures are terminal for the
// question; empty retrieval is not a failure and hands an explicit
// no-context prompt to synthesis instead.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/llm"
	"github.com/foliodocs/folio/pkg/memory"
	"github.com/foliodocs/folio/pkg/vector"
)

// DefaultTopK is how many chunks retrieval hands to synthesis.
const DefaultTopK = 5

const (
	defaultTemperature = 0.2
	defaultMaxTokens   = 1024
	defaultBackoff     = 500 * time.Millisecond

	// synthesisAttempts is the total tries for the synthesis call: the
	// initial attempt plus one retry.
	synthesisAttempts = 2
)

// Config is the configuration options for the orchestrator.
type Config struct {
	// Provider embeds queries and generates answers.
	Provider llm.Provider

	// Store is the vector index queried for evidence.
	Store vector.Store

	// TopK is the default retrieval depth (defaults to DefaultTopK).
	TopK int

	// Temperature is the synthesis sampling temperature (defaults to 0.2).
	Temperature float64

	// MaxTokens caps the synthesized answer length (defaults to 1024).
	MaxTokens int

	// Backoff is the base delay for the synthesis retry (defaults to 500ms).
	Backoff time.Duration

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Orchestrator runs the retrieve-synthesize chain for questions.
type Orchestrator struct {
	config *Config
	logger *zap.Logger
}

// AskOptions carries per-question overrides.
type AskOptions struct {
	// TopK overrides the configured retrieval depth when positive.
	TopK int

	// History is the session history for conversational questions. With
	// two or more messages the retrieval query is enhanced with recent
	// turns; citations and formatting are unchanged.
	History []memory.Message
}

// NewOrchestrator creates a new orchestrator.
func NewOrchestrator(c *Config) (*Orchestrator, error) {
	if c == nil {
		return nil, errors.New("config is required")
	}

	if c.Provider == nil {
		return nil, errors.New("provider is required")
	}

	if c.Store == nil {
		return nil, errors.New("vector store is required")
	}

	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}

	if c.Temperature == 0 {
		c.Temperature = defaultTemperature
	}

	if c.MaxTokens == 0 {
		c.MaxTokens = defaultMaxTokens
	}

	if c.Backoff <= 0 {
		c.Backoff = defaultBackoff
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	return &Orchestrator{
		config: c,
		logger: c.Logger,
	}, nil
}

// Ask answers a question against the index. The returned Answer carries the
// synthesized text, one citation per distinct source document in rank order,
// and the execution trace.
func (o *Orchestrator) Ask(ctx context.Context, question string, opts AskOptions) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, errors.New("question is required")
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = o.config.TopK
	}

	query := memory.EnhanceQuery(opts.History, question)
	conversational := len(opts.History) >= 2

	trace := []Message{{
		Role:    RoleTask,
		Content: fmt.Sprintf(retrieveInstruction, query),
	}}

	matches, err := o.retrieve(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	evidence := evidenceBlock(matches)
	trace = append(trace, Message{Role: RoleTool, Content: evidence})

	text, err := o.synthesize(ctx, query, evidence, len(matches) > 0, conversational)
	if err != nil {
		return nil, err
	}

	trace = append(trace, Message{Role: RoleAssistant, Content: text})

	o.logger.Info("question answered",
		zap.Int("matches", len(matches)),
		zap.Int("answer_chars", len(text)),
	)

	return &Answer{
		Text:      text,
		Citations: citations(matches),
		Trace:     trace,
	}, nil
}

// retrieve embeds the query and pulls the top-k nearest chunks.
func (o *Orchestrator) retrieve(ctx context.Context, query string, topK int) ([]vector.Match, error) {
	embedding, err := o.config.Provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %w", ErrRetrievalFailed, err)
	}

	matches, err := o.config.Store.Query(ctx, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: querying index: %w", ErrRetrievalFailed, err)
	}

	o.logger.Debug("retrieval complete",
		zap.Int("top_k", topK),
		zap.Int("matches", len(matches)),
	)

	return matches, nil
}

// synthesize generates the answer from the evidence, retrying once on
// retryable provider errors.
func (o *Orchestrator) synthesize(ctx context.Context, question, evidence string, grounded, conversational bool) (string, error) {
	opts := llm.CompleteOptions{
		Temperature: o.config.Temperature,
		MaxTokens:   o.config.MaxTokens,
		System:      synthesisSystem(grounded, conversational),
	}
	prompt := synthesisPrompt(question, evidence, grounded)

	var text string
	err := llm.Retry(ctx, synthesisAttempts, o.config.Backoff, func() error {
		var completeErr error
		text, completeErr = o.config.Provider.Complete(ctx, prompt, opts)
		return completeErr
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}

	return strings.TrimSpace(text), nil
}
