package mcp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// sessionTimeout closes HTTP sessions that have been idle this long.
const sessionTimeout = 30 * time.Minute

// NewHTTPHandler serves the tools over streamable HTTP. All sessions share one server
// and therefore answer from the same index.
func NewHTTPHandler(server *Server, logger *slog.Logger) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server.MCPServer()
	}, &mcp.StreamableHTTPOptions{
		Logger:         logger,
		SessionTimeout: sessionTimeout,
	})
}

// NewMux routes /mcp to the tools and GET /health to the vector store probe.
func NewMux(server *Server, health HealthChecker, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/mcp", NewHTTPHandler(server, logger))
	mux.Handle("GET /health", NewHealthHandler(health))
	return mux
}
