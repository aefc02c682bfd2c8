package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/docqa/internal/retriever"
)

const (
	defaultMaxResults = 4
	maxMaxResults     = 20
)

// makeAskHandler creates the ask_documents tool handler.
// The output carries the same answer, sources and context as the interactive prompt.
func makeAskHandler(answerer Answerer) func(
	context.Context, *mcp.CallToolRequest, AskDocumentsInput,
) (*mcp.CallToolResult, AskDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskDocumentsInput) (
		*mcp.CallToolResult, AskDocumentsOutput, error,
	) {
		if input.Question == "" {
			return nil, AskDocumentsOutput{}, errors.New("question is required")
		}

		result, err := answerer.Answer(ctx, input.Question)
		if err != nil {
			return nil, AskDocumentsOutput{}, fmt.Errorf("failed to answer question: %w", err)
		}

		sources := result.Sources
		if sources == nil {
			sources = []string{} // Ensure non-nil for JSON marshaling
		}
		chunks := make([]ContextChunk, 0, len(result.Context))
		for _, c := range result.Context {
			chunks = append(chunks, ContextChunk{
				Source:  c.Metadata.SourceOrUnknown(),
				Content: c.Content,
			})
		}

		return nil, AskDocumentsOutput{
			Answer:    result.Answer,
			Sources:   sources,
			Context:   chunks,
			Formatted: retriever.FormatResponse(result, input.ShowContext),
		}, nil
	}
}

// makeSearchHandler creates the search_documents tool handler.
// Search flow:
// 1. Clamp max_results to [1, 20], default 4
// 2. Embed the query and search the collection
// 3. Drop chunks scoring below min_score
func makeSearchHandler(index Index) func(
	context.Context, *mcp.CallToolRequest, SearchDocumentsInput,
) (*mcp.CallToolResult, SearchDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchDocumentsInput) (
		*mcp.CallToolResult, SearchDocumentsOutput, error,
	) {
		if input.Query == "" {
			return nil, SearchDocumentsOutput{}, errors.New("query is required")
		}

		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = defaultMaxResults
		}
		maxResults = min(maxResults, maxMaxResults)

		hits, err := index.SimilaritySearch(ctx, input.Query, maxResults)
		if err != nil {
			return nil, SearchDocumentsOutput{}, fmt.Errorf("search failed: %w", err)
		}

		results := make([]SearchResult, 0, len(hits))
		for _, h := range hits {
			if h.Score < input.MinScore {
				continue // Below threshold
			}
			results = append(results, SearchResult{
				Source:   h.Document.Metadata.SourceOrUnknown(),
				FileType: h.Document.Metadata.FileType,
				Score:    h.Score,
				Content:  h.Document.Content,
				Metadata: h.Document.Metadata.Extra,
			})
		}

		if len(results) == 0 {
			return nil, SearchDocumentsOutput{
				Results: []SearchResult{},
				Message: "No matching chunks found. Try broader search terms.",
			}, nil
		}

		return nil, SearchDocumentsOutput{Results: results}, nil
	}
}

// makeStatusHandler creates the index_status tool handler.
// A failing SourceCommit lookup leaves the commit empty rather than failing the tool.
func makeStatusHandler(cfg *Config) func(
	context.Context, *mcp.CallToolRequest, IndexStatusInput,
) (*mcp.CallToolResult, IndexStatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IndexStatusInput) (
		*mcp.CallToolResult, IndexStatusOutput, error,
	) {
		info, err := cfg.Index.Info(ctx)
		if err != nil {
			return nil, IndexStatusOutput{}, fmt.Errorf("failed to get collection info: %w", err)
		}

		out := IndexStatusOutput{
			Collection:  cfg.Index.Collection(),
			Store:       cfg.Store,
			Origin:      cfg.Index.Origin().String(),
			DocsPath:    cfg.DocsPath,
			TotalChunks: info.PointsCount,
			Dimension:   info.Dimension,

			EmbeddingModel: cfg.EmbeddingModel,
			ChatModel:      cfg.ChatModel,
		}

		if cfg.SourceCommit != nil {
			if sha, err := cfg.SourceCommit(ctx); err == nil {
				out.SourceCommit = sha
			}
		}

		return nil, out, nil
	}
}
