package storage

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/docqa/internal/document"
)

// vectorName is the named vector holding chunk embeddings.
const vectorName = "content"

// upsertBatchSize is the number of points sent per upsert request.
const upsertBatchSize = 100

// QdrantStorage wraps the Qdrant client with connection management and health checks.
type QdrantStorage struct {
	client *qdrant.Client
	host   string
	port   int
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(ctx context.Context, host string, port int) (*QdrantStorage, error) {
	// Create Qdrant client using gRPC
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client: client,
		host:   host,
		port:   port,
	}

	if err := storage.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return storage, nil
}

func newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(b, ctx)
}

// healthCheckWithRetry performs health check with exponential backoff.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error { return s.Health(ctx) }, newBackOff(ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// CollectionExists reports whether the named collection exists.
func (s *QdrantStorage) CollectionExists(ctx context.Context, collection string) (bool, error) {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list collections: %w", err)
	}
	return slices.Contains(collections, collection), nil
}

// createCollection creates the collection with cosine distance and a source payload index.
func (s *QdrantStorage) createCollection(ctx context.Context, collection string, dim int) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	for _, field := range []string{"source", "file_type"} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}
	return nil
}

// ReplaceCollection deletes and recreates the collection, then upserts chunks in batches.
// Unlike the SQLite store this is not atomic: a failed upsert leaves a partial collection.
func (s *QdrantStorage) ReplaceCollection(ctx context.Context, collection string, chunks []Chunk) error {
	dim, err := dimensionOf(chunks)
	if err != nil {
		return err
	}
	if dim == 0 {
		return fmt.Errorf("%w: no chunks to size the collection", ErrDimensionMismatch)
	}

	if err := s.DeleteCollection(ctx, collection); err != nil {
		return err
	}
	if err := s.createCollection(ctx, collection, dim); err != nil {
		return err
	}

	for i := 0; i < len(chunks); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(chunks))

		points := make([]*qdrant.PointStruct, 0, end-i)
		for j, chunk := range chunks[i:end] {
			point, err := toPoint(chunk, i+j)
			if err != nil {
				return err
			}
			points = append(points, point)
		}

		if err := s.upsertWithRetry(ctx, collection, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

func toPoint(chunk Chunk, position int) (*qdrant.PointStruct, error) {
	id := chunk.ID
	if id == "" {
		id = uuid.New().String()
	}

	extra, err := marshalExtra(chunk.Document.Metadata.Extra)
	if err != nil {
		return nil, err
	}

	meta := chunk.Document.Metadata
	return &qdrant.PointStruct{
		Id: qdrant.NewIDUUID(id),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
			vectorName: qdrant.NewVector(chunk.Embedding...),
		}),
		Payload: qdrant.NewValueMap(map[string]any{
			"content":   chunk.Document.Content,
			"source":    meta.Source,
			"file_name": meta.FileName,
			"file_type": meta.FileType,
			"extra":     extra,
			"position":  position,
		}),
	}, nil
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (s *QdrantStorage) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		return err
	}

	return backoff.Retry(operation, newBackOff(ctx))
}

// Search performs vector similarity search.
// Returns top k chunks with similarity scores, ordered by score descending.
func (s *QdrantStorage) Search(ctx context.Context, collection string, embedding []float32, k int) ([]ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}

	using := vectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(embedding...),
		Using:          &using,
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	scored := make([]ScoredChunk, 0, len(results))
	for _, result := range results {
		payload := result.Payload

		extra, err := unmarshalExtra(payload["extra"].GetStringValue())
		if err != nil {
			return nil, err
		}

		scored = append(scored, ScoredChunk{
			Chunk: Chunk{
				ID: result.Id.GetUuid(),
				Document: document.Document{
					Content: payload["content"].GetStringValue(),
					Metadata: document.Metadata{
						Source:   payload["source"].GetStringValue(),
						FileName: payload["file_name"].GetStringValue(),
						FileType: payload["file_type"].GetStringValue(),
						Extra:    extra,
					},
				},
			},
			Score: float64(result.Score), // Qdrant returns float32
		})
	}

	return scored, nil
}

// CollectionInfo retrieves collection statistics including total points count.
func (s *QdrantStorage) CollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error) {
	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}

	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}

	out := &CollectionInfo{Name: collection, PointsCount: info.GetPointsCount()}
	if params := info.GetConfig().GetParams().GetVectorsConfig().GetParamsMap(); params != nil {
		if v, ok := params.GetMap()[vectorName]; ok {
			out.Dimension = int(v.GetSize())
		}
	}
	return out, nil
}

// DeleteCollection drops the collection if it exists.
func (s *QdrantStorage) DeleteCollection(ctx context.Context, collection string) error {
	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

var _ VectorStore = (*QdrantStorage)(nil)
