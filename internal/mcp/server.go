package mcp

import (
	"context"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server  *mcp.Server
	service Service
	running sync.Mutex
}

// Config holds server dependencies.
type Config struct {
	Service Service
	Version string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}
	impl := &mcp.Implementation{
		Name:    "vector-ingest-server",
		Version: version,
	}

	s := &Server{
		server:  mcp.NewServer(impl, nil),
		service: cfg.Service,
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_documents",
		Description: "Chunk, embed and upload all documents from the configured source into the vector index. Creates the index on first use. Optionally ingest only a subdirectory of the configured source directory.",
	}, makeIngestHandler(cfg.Service, &s.running))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_status",
		Description: "Report whether the configured vector index exists and how many vectors it holds.",
	}, makeStatusHandler(cfg.Service))

	return s
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
