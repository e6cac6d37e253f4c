package mcp

import "net/http"

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Vector Ingest MCP Server</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #0f172a; color: #e2e8f0; padding: 3rem; }
  h1 { font-size: 1.5rem; margin-bottom: 0.5rem; }
  .subtitle { color: #94a3b8; margin-bottom: 1.5rem; }
  a { color: #38bdf8; text-decoration: none; }
  .endpoint { font-family: "SF Mono", Menlo, monospace; font-size: 0.9rem; color: #a5b4fc; }
  li { margin-bottom: 0.4rem; }
</style>
</head>
<body>
  <h1>Vector Ingest MCP Server</h1>
  <p class="subtitle">Chunk, embed and upload documents into a vector index via the Model Context Protocol.</p>
  <ul>
    <li><a href="/mcp" class="endpoint">/mcp</a> MCP Streamable HTTP (tools: ingest_documents, index_status)</li>
    <li><a href="/health" class="endpoint">/health</a> Health check</li>
  </ul>
</body>
</html>`

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(landingHTML))
	}
}
