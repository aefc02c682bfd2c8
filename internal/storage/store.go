// Package storage persists embedded chunks in named collections and searches them by
// cosine similarity.
package storage

import (
	"context"
	"math"

	"github.com/bull/docqa/internal/document"
)

// Chunk is a document chunk with its embedding vector.
type Chunk struct {
	ID        string // UUID
	Document  document.Document
	Embedding []float32
}

// ScoredChunk is a search hit. Higher scores are more similar.
type ScoredChunk struct {
	Chunk
	Score float64
}

// CollectionInfo contains collection statistics.
type CollectionInfo struct {
	Name        string
	PointsCount uint64
	Dimension   int
}

// VectorStore is a persisted set of named collections.
type VectorStore interface {
	// ReplaceCollection drops any existing collection with this name and stores chunks
	// in its place.
	ReplaceCollection(ctx context.Context, collection string, chunks []Chunk) error
	// Search returns up to k chunks ordered by descending similarity.
	Search(ctx context.Context, collection string, embedding []float32, k int) ([]ScoredChunk, error)
	CollectionExists(ctx context.Context, collection string) (bool, error)
	CollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error)
	DeleteCollection(ctx context.Context, collection string) error
	Health(ctx context.Context) error
	Close() error
}

// dimensionOf returns the shared embedding length of chunks, or ErrDimensionMismatch.
func dimensionOf(chunks []Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	dim := len(chunks[0].Embedding)
	if dim == 0 {
		return 0, errEmptyEmbedding(0)
	}
	for i, c := range chunks {
		if len(c.Embedding) != dim {
			return 0, errDimension(i, len(c.Embedding), dim)
		}
	}
	return dim, nil
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when the
// lengths differ or either vector is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
