// Package mcp provides an MCP (Model Context Protocol) server over the
// folio index.
package mcp

import (
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/agent"
	"github.com/foliodocs/folio/pkg/llm"
	"github.com/foliodocs/folio/pkg/utils"
	"github.com/foliodocs/folio/pkg/vector"
)

type Config struct {
	// Provider embeds retrieval queries
	Provider llm.Provider

	// Store is the vector index behind the retrieve tool
	Store vector.Store

	// Orchestrator answers questions for the ask tool
	Orchestrator *agent.Orchestrator

	// Noop for an empty MCP server
	Noop bool

	// Logger is the configured zap logger
	Logger *zap.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the retrieve and ask tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "folio",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if c.Noop {
		// return the empty MCP server with no tools configured
		// if the noop flag is set (i.e., MCP capabilities are disabled)
		s.mcpServer = mcpServer
		return s, nil
	}

	if c.Provider == nil {
		return nil, errors.New("provider is required")
	}
	if c.Store == nil {
		return nil, errors.New("vector store is required")
	}
	if c.Orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        retrieveToolName,
		Description: retrieveDescription,
	}, s.handleRetrieve)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        askToolName,
		Description: askDescription,
	}, s.handleAsk)

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
