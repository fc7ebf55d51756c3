// Package api provides the HTTP API server for querying the folio index.
package api

import (
	"net/http"

	"github.com/foliodocs/folio/pkg/agent"
	"github.com/foliodocs/folio/pkg/llm"
	"github.com/foliodocs/folio/pkg/memory"
)

// Config is the API server configuration. The store and logger are
// required and injected separately; everything here is optional
// capability wiring.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// Provider embeds search queries. Nil disables /v1/search.
	Provider llm.Provider

	// Orchestrator answers questions. Nil disables /v1/ask.
	Orchestrator *agent.Orchestrator

	// Sessions is the conversation memory driver. Nil disables the
	// session endpoints and session continuation on /v1/ask.
	Sessions memory.Driver

	// MCP is mounted at /mcp when set.
	MCP http.Handler
}
