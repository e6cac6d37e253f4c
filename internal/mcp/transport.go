package mcp

import (
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// HTTPHandlerOptions tunes the Streamable HTTP transport.
type HTTPHandlerOptions struct {
	// Stateless drops session tracking, for deployments behind a load balancer.
	Stateless bool
	// JSONResponse answers tool calls with application/json instead of an SSE stream.
	JSONResponse bool
	Logger       *slog.Logger
}

// NewHTTPHandler serves the ingestion tools over Streamable HTTP. Every request
// shares the one Server, so the single-run guard on ingest_documents applies
// across sessions. Mount it next to /health:
//
//	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))
func NewHTTPHandler(server *Server, opts *HTTPHandlerOptions) http.Handler {
	if opts == nil {
		opts = &HTTPHandlerOptions{}
	}

	shared := server.MCPServer()
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return shared
	}, &mcp.StreamableHTTPOptions{
		Stateless:    opts.Stateless,
		JSONResponse: opts.JSONResponse,
		Logger:       opts.Logger,
	})
}
