package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/foliodocs/folio/pkg/agent"
)

var (
	askToolName    = "ask"
	askDescription = "Ask a question over the indexed documents. Retrieves relevant chunks and synthesizes a grounded answer with citations to the source files."
)

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed documents"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of chunks to retrieve as evidence (default: 5)"`
}

// AskOutput represents the structured output of the ask tool.
type AskOutput struct {
	Question  string           `json:"question"`
	Answer    string           `json:"answer"`
	Citations []agent.Citation `json:"citations"`
}

// handleAsk processes an ask request. MCP sessions are stateless, so the
// question carries no conversation history.
func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	if input.Question == "" {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: "question is required"},
			},
		}, AskOutput{}, nil
	}

	answer, err := s.config.Orchestrator.Ask(ctx, input.Question, agent.AskOptions{
		TopK: input.TopK,
	})
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Ask failed: %v", err)},
			},
		}, AskOutput{}, nil
	}

	citations := answer.Citations
	if citations == nil {
		citations = []agent.Citation{}
	}

	output := AskOutput{
		Question:  input.Question,
		Answer:    answer.Text,
		Citations: citations,
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize results: %v", err)},
			},
		}, AskOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
