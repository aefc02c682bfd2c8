// Package indexer splits documents, embeds the chunks and stores them as a named collection.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bull/docqa/internal/document"
	"github.com/bull/docqa/internal/embedding"
	"github.com/bull/docqa/internal/splitter"
	"github.com/bull/docqa/internal/storage"
)

var (
	ErrNoDocuments   = errors.New("no documents provided for indexing")
	ErrIndexNotFound = errors.New("index not found")
)

// Origin tells whether an Index was built in this run or reopened from disk.
type Origin int

const (
	Fresh Origin = iota
	Existing
)

func (o Origin) String() string {
	switch o {
	case Fresh:
		return "fresh"
	case Existing:
		return "existing"
	default:
		return fmt.Sprintf("Origin(%d)", int(o))
	}
}

// IndexResult contains statistics about an indexing operation.
type IndexResult struct {
	TotalDocs   int
	TotalChunks int
	Duration    time.Duration
}

// Index is a searchable collection bound to the embedder that produced it.
type Index struct {
	store      storage.VectorStore
	embedder   embedding.Embedder
	collection string
	origin     Origin
	result     *IndexResult
}

// Origin reports how the index was obtained.
func (ix *Index) Origin() Origin { return ix.origin }

// Collection returns the collection name.
func (ix *Index) Collection() string { return ix.collection }

// Result returns indexing statistics for a Fresh index, nil otherwise.
func (ix *Index) Result() *IndexResult { return ix.result }

// SimilaritySearch embeds query and returns up to k chunks, most similar first.
func (ix *Index) SimilaritySearch(ctx context.Context, query string, k int) ([]storage.ScoredChunk, error) {
	vectors, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vectors))
	}

	results, err := ix.store.Search(ctx, ix.collection, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", ix.collection, err)
	}
	return results, nil
}

// Info returns statistics of the underlying collection.
func (ix *Index) Info(ctx context.Context) (*storage.CollectionInfo, error) {
	return ix.store.CollectionInfo(ctx, ix.collection)
}

// Indexer orchestrates split → embed → store.
type Indexer struct {
	splitter *splitter.Splitter
	embedder embedding.Embedder
	store    storage.VectorStore
	logger   *slog.Logger
	out      io.Writer
}

// New creates an indexer. A nil logger means slog.Default(); a nil out discards progress.
func New(split *splitter.Splitter, embedder embedding.Embedder, store storage.VectorStore, logger *slog.Logger, out io.Writer) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	if out == nil {
		out = io.Discard
	}
	return &Indexer{
		splitter: split,
		embedder: embedder,
		store:    store,
		logger:   logger,
		out:      out,
	}
}

// ChunkDocuments splits documents into chunks.
func (ix *Indexer) ChunkDocuments(docs []document.Document) []document.Document {
	if len(docs) == 0 {
		return nil
	}
	fmt.Fprintf(ix.out, "Chunking %d documents...\n", len(docs))
	chunks := ix.splitter.SplitDocuments(docs)
	fmt.Fprintf(ix.out, "Created %d chunks\n", len(chunks))
	return chunks
}

// IndexDocuments splits, embeds and stores docs, replacing the collection.
func (ix *Indexer) IndexDocuments(ctx context.Context, docs []document.Document, collection string) (*Index, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	start := time.Now()

	chunks := ix.ChunkDocuments(docs)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: all documents were empty", ErrNoDocuments)
	}

	fmt.Fprintf(ix.out, "Indexing %d chunks into vector store...\n", len(chunks))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embed chunks: got %d embeddings for %d chunks", len(embeddings), len(chunks))
	}
	ix.logger.Debug("Embedded chunks", "count", len(chunks))

	stored := make([]storage.Chunk, len(chunks))
	for i, c := range chunks {
		stored[i] = storage.Chunk{
			ID:        uuid.New().String(),
			Document:  c,
			Embedding: embeddings[i],
		}
	}

	if err := ix.store.ReplaceCollection(ctx, collection, stored); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}

	result := &IndexResult{
		TotalDocs:   len(docs),
		TotalChunks: len(chunks),
		Duration:    time.Since(start),
	}
	ix.logger.Info("Indexing complete",
		"collection", collection,
		"docs", result.TotalDocs,
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)
	fmt.Fprintln(ix.out, "Indexing complete! Vector store updated.")

	return &Index{
		store:      ix.store,
		embedder:   ix.embedder,
		collection: collection,
		origin:     Fresh,
		result:     result,
	}, nil
}

// LoadExistingIndex reopens a persisted collection.
func (ix *Indexer) LoadExistingIndex(ctx context.Context, collection string) (*Index, error) {
	exists, err := ix.store.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("check collection: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: collection %q", ErrIndexNotFound, collection)
	}

	ix.logger.Debug("Loaded existing index", "collection", collection)
	return &Index{
		store:      ix.store,
		embedder:   ix.embedder,
		collection: collection,
		origin:     Existing,
	}, nil
}

// OpenOrBuild reuses an existing collection unless forceReindex is set or none exists.
// The branch taken is announced on the progress writer before any work starts.
func (ix *Indexer) OpenOrBuild(ctx context.Context, docs []document.Document, collection string, forceReindex bool) (*Index, error) {
	if !forceReindex {
		exists, err := ix.HasIndex(ctx, collection)
		if err != nil {
			return nil, fmt.Errorf("check collection: %w", err)
		}
		if exists {
			fmt.Fprintln(ix.out, "Found existing index. Loading...")
			return ix.LoadExistingIndex(ctx, collection)
		}
	}
	fmt.Fprintln(ix.out, "Creating new index...")
	return ix.IndexDocuments(ctx, docs, collection)
}

// HasIndex reports whether a collection is already persisted.
func (ix *Indexer) HasIndex(ctx context.Context, collection string) (bool, error) {
	return ix.store.CollectionExists(ctx, collection)
}
