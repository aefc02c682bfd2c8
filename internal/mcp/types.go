// Package mcp exposes the question-answering pipeline as MCP tools.
package mcp

// AskDocumentsInput defines the input parameters for the ask_documents tool.
type AskDocumentsInput struct {
	// Question is answered from the indexed documents.
	Question string `json:"question" jsonschema:"the question to answer from the indexed documents"`
	// ShowContext includes the retrieved chunks in the formatted answer.
	ShowContext bool `json:"show_context,omitempty" jsonschema:"include the retrieved context chunks in the formatted answer"`
}

// AskDocumentsOutput contains the answer and where it came from.
type AskDocumentsOutput struct {
	// Answer is the chat model's reply.
	Answer string `json:"answer"`
	// Sources lists the distinct sources of the retrieved chunks, in retrieval order.
	Sources []string `json:"sources"`
	// Context is every retrieved chunk, most similar first.
	Context []ContextChunk `json:"context"`
	// Formatted is the answer rendered the way the interactive prompt prints it.
	Formatted string `json:"formatted"`
}

// ContextChunk is one retrieved chunk.
type ContextChunk struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// SearchDocumentsInput defines the input parameters for the search_documents tool.
type SearchDocumentsInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"the semantic search query"`
	// MaxResults is the maximum number of chunks to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"maximum number of chunks to return (default 4, at most 20)"`
	// MinScore drops chunks below this similarity.
	MinScore float64 `json:"min_score,omitempty" jsonschema:"minimum similarity score between 0 and 1 (default 0)"`
}

// SearchDocumentsOutput contains the matching chunks.
type SearchDocumentsOutput struct {
	// Results is the list of matching chunks, most similar first.
	Results []SearchResult `json:"results"`
	// Message provides informational context (e.g., "No matching chunks found").
	Message string `json:"message,omitempty"`
}

// SearchResult represents a single chunk match from semantic search.
type SearchResult struct {
	// Source is the file path or URL the chunk came from.
	Source string `json:"source"`
	// FileType is the source file's extension without the dot.
	FileType string `json:"file_type,omitempty"`
	// Score is the cosine similarity to the query.
	Score float64 `json:"score"`
	// Content is the chunk text.
	Content string `json:"content"`
	// Metadata holds format-specific keys such as page, row or header_path.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IndexStatusInput defines the input parameters for the index_status tool.
// This tool takes no parameters.
type IndexStatusInput struct{}

// IndexStatusOutput describes the index the server answers from.
type IndexStatusOutput struct {
	// Collection is the vector store collection name.
	Collection string `json:"collection"`
	// Store is the backend, local or qdrant.
	Store string `json:"store"`
	// Origin is "fresh" when the index was built at startup, "existing" when it was reopened.
	Origin string `json:"origin"`
	// DocsPath is the folder or github: location the documents were loaded from.
	DocsPath string `json:"docs_path"`
	// TotalChunks is the number of stored chunks.
	TotalChunks uint64 `json:"total_chunks"`
	// Dimension is the embedding vector size.
	Dimension int `json:"dimension"`
	// EmbeddingModel and ChatModel are the models answering through this index, when known.
	EmbeddingModel string `json:"embedding_model,omitempty"`
	ChatModel      string `json:"chat_model,omitempty"`
	// SourceCommit is the latest commit of a GitHub source, when known.
	SourceCommit string `json:"source_commit,omitempty"`
}
