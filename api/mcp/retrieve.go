package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	apisearch "github.com/foliodocs/folio/api/search"
)

var (
	retrieveToolName    = "retrieve"
	retrieveDescription = "Search the indexed documents for chunks relevant to a query. Returns the top matching chunks with their source files and similarity scores, without any answer synthesis."
)

// RetrieveInput represents the input arguments for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"the search query text to find relevant chunks"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of chunks to return (default: 5)"`
}

// handleRetrieve processes a retrieve request.
func (s *Server) handleRetrieve(ctx context.Context, _ *mcp.CallToolRequest, input RetrieveInput) (*mcp.CallToolResult, apisearch.Output, error) {
	logger := s.config.Logger

	if input.Query == "" {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: "query is required"},
			},
		}, apisearch.Output{}, nil
	}

	logger.Debug("MCP retrieve request",
		zap.String("query", input.Query),
		zap.Int("top_k", input.TopK),
	)

	output, err := apisearch.Search(ctx, input.Query, input.TopK, s.config.Provider, s.config.Store, logger)
	if err != nil {
		logger.Error("retrieve tool failed", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Retrieval failed: %v", err)},
			},
		}, apisearch.Output{}, nil
	}

	// Serialize the structured output as JSON for the text field
	// Per MCP spec: tools returning structured content should also return
	// serialized JSON in a TextContent block for backwards compatibility
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal retrieve output", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize results: %v", err)},
			},
		}, apisearch.Output{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, *output, nil
}
