package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/docqa/internal/indexer"
	"github.com/bull/docqa/internal/retriever"
	"github.com/bull/docqa/internal/storage"
)

// Version is the MCP server version.
const Version = "v0.1.0"

// Index is the searchable collection the tools read from.
type Index interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]storage.ScoredChunk, error)
	Info(ctx context.Context) (*storage.CollectionInfo, error)
	Collection() string
	Origin() indexer.Origin
}

// Answerer answers a question from the index.
type Answerer interface {
	Answer(ctx context.Context, question string) (*retriever.Result, error)
}

var (
	_ Index    = (*indexer.Index)(nil)
	_ Answerer = (*retriever.Retriever)(nil)
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Index    Index
	Answerer Answerer
	Store    string
	DocsPath string

	EmbeddingModel string
	ChatModel      string

	// SourceCommit reports the latest commit of a remote source. Optional.
	SourceCommit func(ctx context.Context) (string, error)
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil || cfg.Index == nil || cfg.Answerer == nil {
		return nil, errors.New("mcp server needs an index and an answerer")
	}

	impl := &mcp.Implementation{
		Name:    "docqa",
		Version: Version,
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_documents",
		Description: "Answer a question from the indexed documents. Returns the answer, its sources and the retrieved context.",
	}, makeAskHandler(cfg.Answerer))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Semantic search over the indexed document chunks. Returns matching chunks with their sources and similarity scores.",
	}, makeSearchHandler(cfg.Index))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_status",
		Description: "Get the status of the document index: collection, backend, chunk count and embedding dimension.",
	}, makeStatusHandler(cfg))

	return &Server{server: server}, nil
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves handler on addr until ctx is cancelled.
func RunHTTP(ctx context.Context, addr string, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
