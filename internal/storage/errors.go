package storage

import (
	"errors"
	"fmt"
)

var (
	ErrQdrantUnreachable  = errors.New("qdrant server unreachable")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
)

func errDimension(i, got, want int) error {
	return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d", ErrDimensionMismatch, i, got, want)
}

func errEmptyEmbedding(i int) error {
	return fmt.Errorf("%w: chunk %d has an empty embedding", ErrDimensionMismatch, i)
}
