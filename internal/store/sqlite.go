package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const chunkSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	url          TEXT NOT NULL DEFAULT '',
	text         TEXT NOT NULL,
	content_type TEXT NOT NULL,
	language     TEXT NOT NULL DEFAULT '',
	dimensions   INTEGER NOT NULL DEFAULT 0,
	embedding    BLOB
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
`

// SQLiteChunkStore persists the corpus in a single SQLite file. The
// ingestion side writes it; the serving side only reads it at startup.
type SQLiteChunkStore struct {
	db   *sql.DB
	path string
}

// OpenChunkStore opens or creates the corpus database. An empty path
// opens a private in-memory database.
func OpenChunkStore(path string) (*SQLiteChunkStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	if path == "" {
		pragmas = pragmas[1:]
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(chunkSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteChunkStore{db: db, path: path}, nil
}

// SaveChunks upserts chunks in one transaction.
func (s *SQLiteChunkStore) SaveChunks(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, source, url, text, content_type, language, dimensions, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			url = excluded.url,
			text = excluded.text,
			content_type = excluded.content_type,
			language = excluded.language,
			dimensions = excluded.dimensions,
			embedding = excluded.embedding`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, ch := range chunks {
		ct := ch.ContentType
		if ct == "" {
			ct = ContentGeneral
		}
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.Source, ch.URL, ch.Text, string(ct), ch.Language,
			len(ch.Embedding), encodeEmbedding(ch.Embedding),
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", ch.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadChunks reads every chunk ordered by id.
func (s *SQLiteChunkStore) LoadChunks(ctx context.Context) ([]*Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, url, text, content_type, language, dimensions, embedding
		FROM chunks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chunks []*Chunk
	for rows.Next() {
		var (
			ch   Chunk
			ct   string
			dims int
			blob []byte
		)
		if err := rows.Scan(&ch.ID, &ch.Source, &ch.URL, &ch.Text, &ct, &ch.Language, &dims, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		ch.ContentType = ContentType(ct)
		ch.Embedding, err = decodeEmbedding(blob, dims)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", ch.ID, err)
		}
		chunks = append(chunks, &ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return chunks, nil
}

// Count returns the number of stored chunks.
func (s *SQLiteChunkStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// CorpusStats summarizes a stored corpus.
type CorpusStats struct {
	Chunks        int
	Embedded      int
	Dimensions    int
	BySource      map[string]int
	ByContentType map[ContentType]int
}

// Stats aggregates counts per source and content type.
func (s *SQLiteChunkStore) Stats(ctx context.Context) (*CorpusStats, error) {
	stats := &CorpusStats{
		BySource:      make(map[string]int),
		ByContentType: make(map[ContentType]int),
	}

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(dimensions > 0), 0), COALESCE(MAX(dimensions), 0) FROM chunks",
	).Scan(&stats.Chunks, &stats.Embedded, &stats.Dimensions); err != nil {
		return nil, fmt.Errorf("corpus totals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT source, content_type, COUNT(*) FROM chunks GROUP BY source, content_type")
	if err != nil {
		return nil, fmt.Errorf("corpus breakdown: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var source, ct string
		var n int
		if err := rows.Scan(&source, &ct, &n); err != nil {
			return nil, fmt.Errorf("scan breakdown: %w", err)
		}
		stats.BySource[source] += n
		stats.ByContentType[ContentType(ct)] += n
	}
	return stats, rows.Err()
}

func (s *SQLiteChunkStore) Path() string {
	return s.path
}

func (s *SQLiteChunkStore) Close() error {
	return s.db.Close()
}

func encodeEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeEmbedding(buf []byte, dims int) ([]float32, error) {
	if dims == 0 {
		return nil, nil
	}
	if len(buf) != 4*dims {
		return nil, fmt.Errorf("embedding blob is %d bytes, want %d", len(buf), 4*dims)
	}
	v := make([]float32, dims)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, nil
}
