package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// DBFileName is the database file created inside the persist directory.
const DBFileName = "index.db"

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	name       TEXT PRIMARY KEY,
	dimension  INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	id         TEXT PRIMARY KEY,
	collection TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	content    TEXT NOT NULL,
	source     TEXT NOT NULL,
	file_name  TEXT NOT NULL,
	file_type  TEXT NOT NULL,
	extra      TEXT NOT NULL,
	embedding  BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks(collection, position);
`

// SQLiteStore is an embedded VectorStore persisted in a single SQLite file.
// Search is an exact cosine scan over the collection.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) the store inside dir.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating persist directory: %w", err)
	}

	dbPath := filepath.Join(dir, DBFileName)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Pragmas are per connection; a single connection keeps foreign_keys in effect.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Health pings the database.
func (s *SQLiteStore) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// ReplaceCollection swaps the collection contents in one transaction, so a failure
// leaves the previous contents untouched.
func (s *SQLiteStore) ReplaceCollection(ctx context.Context, collection string, chunks []Chunk) error {
	dim, err := dimensionOf(chunks)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO collections (name, dimension, created_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET dimension = excluded.dimension, created_at = excluded.created_at
	`, collection, dim, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("saving collection: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, collection, position, content, source, file_name, file_type, extra, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, chunk := range chunks {
		id := chunk.ID
		if id == "" {
			id = uuid.New().String()
		}

		extra, err := marshalExtra(chunk.Document.Metadata.Extra)
		if err != nil {
			return err
		}

		meta := chunk.Document.Metadata
		if _, err := stmt.ExecContext(ctx, id, collection, i, chunk.Document.Content,
			meta.Source, meta.FileName, meta.FileType, extra, float32SliceToBytes(chunk.Embedding)); err != nil {
			return fmt.Errorf("saving chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Search scores every chunk of the collection and returns the best k.
// Ties keep insertion order.
func (s *SQLiteStore) Search(ctx context.Context, collection string, embedding []float32, k int) ([]ScoredChunk, error) {
	info, err := s.CollectionInfo(ctx, collection)
	if err != nil {
		return nil, err
	}
	if k <= 0 || info.PointsCount == 0 {
		return nil, nil
	}
	if len(embedding) != info.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), info.Dimension)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, source, file_name, file_type, extra, embedding
		FROM chunks WHERE collection = ?
		ORDER BY position
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var scored []ScoredChunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		scored = append(scored, ScoredChunk{
			Chunk: chunk,
			Score: CosineSimilarity(embedding, chunk.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// CollectionExists reports whether the collection has been created.
func (s *SQLiteStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM collections WHERE name = ?`, collection).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking collection: %w", err)
	}
	return n > 0, nil
}

// CollectionInfo returns chunk count and dimension, or ErrCollectionNotFound.
func (s *SQLiteStore) CollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error) {
	info := &CollectionInfo{Name: collection}
	err := s.db.QueryRowContext(ctx, `
		SELECT c.dimension, (SELECT COUNT(*) FROM chunks WHERE collection = c.name)
		FROM collections c WHERE c.name = ?
	`, collection).Scan(&info.Dimension, &info.PointsCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if err != nil {
		return nil, fmt.Errorf("getting collection: %w", err)
	}
	return info, nil
}

// DeleteCollection removes the collection and its chunks. Missing collections are ignored.
func (s *SQLiteStore) DeleteCollection(ctx context.Context, collection string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, collection); err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (Chunk, error) {
	var (
		chunk     Chunk
		extraJSON string
		blob      []byte
	)
	meta := &chunk.Document.Metadata
	if err := row.Scan(&chunk.ID, &chunk.Document.Content, &meta.Source, &meta.FileName,
		&meta.FileType, &extraJSON, &blob); err != nil {
		return Chunk{}, fmt.Errorf("scanning chunk: %w", err)
	}

	extra, err := unmarshalExtra(extraJSON)
	if err != nil {
		return Chunk{}, err
	}
	meta.Extra = extra
	chunk.Embedding = bytesToFloat32Slice(blob)
	return chunk, nil
}

func marshalExtra(extra map[string]string) (string, error) {
	if len(extra) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return "", fmt.Errorf("marshalling chunk metadata: %w", err)
	}
	return string(data), nil
}

func unmarshalExtra(data string) (map[string]string, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var extra map[string]string
	if err := json.Unmarshal([]byte(data), &extra); err != nil {
		return nil, fmt.Errorf("unmarshalling chunk metadata: %w", err)
	}
	return extra, nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

var _ VectorStore = (*SQLiteStore)(nil)
