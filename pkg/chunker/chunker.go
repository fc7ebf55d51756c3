// Package chunker splits documents into token-bounded chunks and generates a
// short situating context for each chunk via the completion provider.
//
// Splitting is structural first (markdown headings, blank-line paragraphs),
// greedily packing whole blocks up to the token budget. Oversized blocks
// fall back to sentence boundaries, and oversized sentences are hard-split
// at the token boundary, so no chunk ever exceeds the budget.
package chunker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/corpus"
	"github.com/foliodocs/folio/pkg/llm"
)

const (
	// DefaultTokenBudget caps the token count of a chunk.
	DefaultTokenBudget = 400

	// DefaultConcurrency bounds parallel context-generation calls.
	DefaultConcurrency = 4

	// DefaultDocumentTokenCeiling truncates the document text included
	// in context prompts.
	DefaultDocumentTokenCeiling = 8000

	// contextAttempts bounds context-generation retries per chunk.
	contextAttempts = 3

	// contextBackoff is the default base delay between retries.
	contextBackoff = 500 * time.Millisecond

	// contextMaxTokens caps the generated blurb length.
	contextMaxTokens = 120
)

const contextPrompt = `Document:
%s

Chunk:
%s

Write one or two sentences situating this chunk within the overall document
to improve retrieval of the chunk. Reply with only those sentences.`

// Chunk is a bounded-size contiguous span of a document's text.
type Chunk struct {
	// DocumentID identifies the owning document.
	DocumentID string

	// Ordinal is the chunk's 0-based position within the document.
	Ordinal int

	// Text is the chunk's span of the normalized document text.
	Text string

	// Tokens is the chunk's token count, never above the configured budget.
	Tokens int
}

// ContextualChunk is a chunk plus its generated situating context. An empty
// context means generation was skipped or degraded; the chunk is still
// indexable.
type ContextualChunk struct {
	Chunk

	// Context is the one-to-two sentence situating blurb.
	Context string
}

// EmbeddingText returns the text submitted for embedding: the context, when
// present, prepended to the chunk text.
func (c ContextualChunk) EmbeddingText() string {
	if c.Context == "" {
		return c.Text
	}
	return c.Context + "\n\n" + c.Text
}

// Config is the configuration options for the chunker.
type Config struct {
	// TokenBudget caps the token count of any produced chunk.
	TokenBudget int

	// Overlap carries this many trailing tokens of each chunk into the
	// next one. Zero keeps chunks disjoint.
	Overlap int

	// Concurrency bounds parallel context-generation calls per document.
	Concurrency int

	// DocumentTokenCeiling truncates the document text included in
	// context prompts.
	DocumentTokenCeiling int

	// Temperature is passed to context-generation completions.
	Temperature float64

	// Backoff is the base delay between context-generation retries.
	Backoff time.Duration

	// Provider generates the per-chunk context blurbs. A nil provider
	// skips context generation entirely.
	Provider llm.Provider

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Chunker splits documents and generates chunk contexts.
type Chunker struct {
	config *Config
}

// New creates a new Chunker.
func New(c *Config) (*Chunker, error) {
	if c.TokenBudget == 0 {
		c.TokenBudget = DefaultTokenBudget
	}
	if c.TokenBudget < 1 {
		return nil, fmt.Errorf("token budget must be positive")
	}
	if c.Overlap < 0 || c.Overlap >= c.TokenBudget {
		return nil, fmt.Errorf("overlap %d must be non-negative and smaller than the token budget %d",
			c.Overlap, c.TokenBudget)
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.DocumentTokenCeiling == 0 {
		c.DocumentTokenCeiling = DefaultDocumentTokenCeiling
	}
	if c.Backoff == 0 {
		c.Backoff = contextBackoff
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	return &Chunker{config: c}, nil
}

// Split divides a document into ordered chunks. With no overlap configured,
// concatenating the chunk texts reproduces the document text exactly.
func (c *Chunker) Split(doc corpus.Document) []Chunk {
	// Overlap tokens are reserved out of the packing budget so the final
	// chunk size never exceeds TokenBudget.
	budget := c.config.TokenBudget - c.config.Overlap

	var units []string
	for _, block := range splitBlocks(doc.Text) {
		if CountTokens(block) <= budget {
			units = append(units, block)
			continue
		}
		for _, sentence := range splitSentences(block) {
			if CountTokens(sentence) <= budget {
				units = append(units, sentence)
				continue
			}
			units = append(units, hardSplit(sentence, budget)...)
		}
	}

	var chunks []Chunk
	var sb strings.Builder
	tokens := 0

	flush := func() {
		text := sb.String()
		sb.Reset()
		tokens = 0
		if strings.TrimSpace(text) == "" {
			return
		}
		if c.config.Overlap > 0 && len(chunks) > 0 {
			text = tailTokens(chunks[len(chunks)-1].Text, c.config.Overlap) + text
		}
		chunks = append(chunks, Chunk{
			DocumentID: doc.ID,
			Ordinal:    len(chunks),
			Text:       text,
			Tokens:     CountTokens(text),
		})
	}

	for _, unit := range units {
		unitTokens := CountTokens(unit)
		if tokens > 0 && tokens+unitTokens > budget {
			flush()
		}
		sb.WriteString(unit)
		tokens += unitTokens
	}
	flush()

	return chunks
}

// Contextualize generates a situating context for each chunk. Calls run
// concurrently bounded by the configured concurrency; a chunk whose
// generation fails after retries proceeds with an empty context rather than
// failing the document.
func (c *Chunker) Contextualize(ctx context.Context, doc corpus.Document, chunks []Chunk) []ContextualChunk {
	out := make([]ContextualChunk, len(chunks))
	if len(chunks) == 0 {
		return out
	}

	document := headTokens(doc.Text, c.config.DocumentTokenCeiling)

	sem := make(chan struct{}, c.config.Concurrency)
	var wg sync.WaitGroup

	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk Chunk) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			blurb, err := c.generateContext(ctx, document, chunk.Text)
			if err != nil {
				c.config.Logger.Warn("context generation failed, chunk proceeds without context",
					zap.String("document_id", doc.ID),
					zap.Int("ordinal", chunk.Ordinal),
					zap.Error(err),
				)
				blurb = ""
			}
			out[i] = ContextualChunk{Chunk: chunk, Context: blurb}
		}(i, chunk)
	}
	wg.Wait()

	return out
}

// generateContext issues one completion for a chunk, retrying only rate
// limits and timeouts. An unavailable provider degrades immediately instead
// of burning the retry budget.
func (c *Chunker) generateContext(ctx context.Context, document, chunk string) (string, error) {
	if c.config.Provider == nil {
		return "", nil
	}

	prompt := fmt.Sprintf(contextPrompt, document, chunk)

	var blurb string
	err := llm.Retry(ctx, contextAttempts, c.config.Backoff, func() error {
		resp, err := c.config.Provider.Complete(ctx, prompt, llm.CompleteOptions{
			Temperature: c.config.Temperature,
			MaxTokens:   contextMaxTokens,
		})
		if err != nil {
			return err
		}
		blurb = strings.TrimSpace(resp)
		return nil
	})
	return blurb, err
}
