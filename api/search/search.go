// Package search provides shared types and logic for raw retrieval over
// the folio index. It is used by both the REST API endpoint and the MCP
// server tool.
package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/agent"
	"github.com/foliodocs/folio/pkg/llm"
	"github.com/foliodocs/folio/pkg/vector"
)

// Result is a single retrieved chunk.
type Result struct {
	Document string  `json:"document"`
	Ordinal  int     `json:"ordinal"`
	Source   string  `json:"source"`
	Score    float32 `json:"score"`
	Context  string  `json:"context,omitempty"`
	Text     string  `json:"text"`
}

// Output is the result set for one search.
type Output struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Count   int      `json:"count"`
}

// Search embeds the query and returns the top-k nearest chunks without
// any synthesis.
func Search(
	ctx context.Context,
	query string,
	topK int,
	provider llm.Provider,
	store vector.Store,
	logger *zap.Logger,
) (*Output, error) {
	if topK <= 0 {
		topK = agent.DefaultTopK
	}

	logger.Debug("search request",
		zap.String("query", query),
		zap.Int("top_k", topK),
	)

	embedding, err := provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := store.Query(ctx, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, Result{
			Document: m.DocumentID,
			Ordinal:  m.Ordinal,
			Source:   m.Source,
			Score:    m.Score,
			Context:  m.Context,
			Text:     m.Text,
		})
	}

	return &Output{
		Query:   query,
		Results: results,
		Count:   len(results),
	}, nil
}
