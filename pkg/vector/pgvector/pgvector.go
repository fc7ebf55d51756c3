// Package pgvector provides a PostgreSQL-backed chunk store using pgvector.
package pgvector

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/vector"
)

// PGVectorStore implements vector.Store using PostgreSQL with the pgvector
// extension.
type PGVectorStore struct {
	db     *sql.DB
	logger *zap.Logger

	// mu serializes dimension lifecycle changes (first write, reset).
	mu sync.Mutex
}

// Config holds configuration for the PostgreSQL store.
type Config struct {
	// URL is the PostgreSQL connection string.
	URL string
}

// NewPGVectorStore creates a new PostgreSQL chunk store. The embeddings table
// is created lazily on the first write, which is what fixes the index
// dimension; the pgvector extension and metadata tables are prepared here.
func NewPGVectorStore(c Config, logger *zap.Logger) (*PGVectorStore, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("postgres URL is required")
	}

	db, err := sql.Open("pgx", c.URL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if _, err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling pgvector extension: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			id BIGSERIAL PRIMARY KEY,
			doc_id TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL DEFAULT '',
			context TEXT NOT NULL DEFAULT '',
			UNIQUE (doc_id, ordinal)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunks table: %w", err)
	}

	// The single-row meta table records the fixed embedding dimension.
	// No row means no write has happened since the last reset.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS index_meta (
			id INTEGER PRIMARY KEY CHECK (id = 0),
			dimension INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating index_meta table: %w", err)
	}

	logger.Info("pgvector chunk store initialized")

	return &PGVectorStore{
		db:     db,
		logger: logger,
	}, nil
}

// formatVector renders a float32 slice as a pgvector text literal.
func formatVector(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

// parseVector parses a pgvector text literal back to a float32 slice.
func parseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	v := make([]float32, len(parts))
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("parsing vector element %d: %w", i, err)
		}
		v[i] = float32(f)
	}
	return v, nil
}

// readDimension reports the fixed index dimension, 0 when unset.
func (s *PGVectorStore) readDimension(ctx context.Context) (int, error) {
	var dim int
	err := s.db.QueryRowContext(ctx,
		`SELECT dimension FROM index_meta WHERE id = 0`,
	).Scan(&dim)

	switch err {
	case nil:
		return dim, nil
	case sql.ErrNoRows:
		return 0, nil
	default:
		return 0, fmt.Errorf("reading index dimension: %w", err)
	}
}

// ensureDimension fixes the index dimension on the first write and rejects
// embeddings that disagree with an already fixed dimension.
func (s *PGVectorStore) ensureDimension(ctx context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.readDimension(ctx)
	if err != nil {
		return err
	}

	if current == 0 {
		createEmb := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS chunk_embeddings (
				chunk_id BIGINT PRIMARY KEY REFERENCES chunks(id) ON DELETE CASCADE,
				embedding vector(%d) NOT NULL
			)
		`, dim)
		if _, err := s.db.ExecContext(ctx, createEmb); err != nil {
			return fmt.Errorf("creating embeddings table: %w", err)
		}

		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO index_meta(id, dimension) VALUES (0, $1)`, dim,
		); err != nil {
			return fmt.Errorf("recording index dimension: %w", err)
		}

		s.logger.Info("index dimension fixed", zap.Int("dimension", dim))
		return nil
	}

	if current != dim {
		return fmt.Errorf("%w: index dimension %d, embedding dimension %d",
			vector.ErrDimensionMismatch, current, dim)
	}

	return nil
}

// Write upserts an entry keyed by (DocumentID, Ordinal).
// The first write fixes the index dimension.
func (s *PGVectorStore) Write(ctx context.Context, entry vector.Entry) error {
	if len(entry.Embedding) == 0 {
		return fmt.Errorf("%w: entry %s/%d has an empty embedding",
			vector.ErrDimensionMismatch, entry.DocumentID, entry.Ordinal)
	}

	if err := s.ensureDimension(ctx, len(entry.Embedding)); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// The upsert keeps the original id so the entry retains its
	// insertion slot.
	var chunkID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO chunks (doc_id, ordinal, source, text, context)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (doc_id, ordinal)
		DO UPDATE SET source = EXCLUDED.source, text = EXCLUDED.text, context = EXCLUDED.context
		RETURNING id
	`, entry.DocumentID, entry.Ordinal, entry.Source, entry.Text, entry.Context).Scan(&chunkID)
	if err != nil {
		return fmt.Errorf("upserting chunk %s/%d: %w", entry.DocumentID, entry.Ordinal, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chunk_embeddings (chunk_id, embedding)
		VALUES ($1, $2::vector)
		ON CONFLICT (chunk_id) DO UPDATE SET embedding = EXCLUDED.embedding
	`, chunkID, formatVector(entry.Embedding)); err != nil {
		return fmt.Errorf("upserting embedding for chunk %s/%d: %w",
			entry.DocumentID, entry.Ordinal, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Query finds the topK most similar chunks to the given embedding.
func (s *PGVectorStore) Query(ctx context.Context, embedding []float32, topK int) ([]vector.Match, error) {
	if topK <= 0 {
		topK = 10
	}

	dim, err := s.readDimension(ctx)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return []vector.Match{}, nil
	}
	if len(embedding) != dim {
		return nil, fmt.Errorf("%w: index dimension %d, query dimension %d",
			vector.ErrDimensionMismatch, dim, len(embedding))
	}

	// Cosine distance via <=>; the id tie-break keeps insertion order.
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			c.doc_id,
			c.ordinal,
			c.source,
			c.text,
			c.context,
			ce.embedding <=> $1::vector AS distance
		FROM chunk_embeddings ce
		INNER JOIN chunks c ON c.id = ce.chunk_id
		ORDER BY distance, c.id
		LIMIT $2
	`, formatVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var matches []vector.Match
	for rows.Next() {
		var m vector.Match
		var distance float64
		if err := rows.Scan(&m.DocumentID, &m.Ordinal, &m.Source, &m.Text, &m.Context, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		// Cosine distance to similarity: exact match scores 1.0
		m.Score = float32(1.0 - distance)
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	s.logger.Debug("queried pgvector",
		zap.Int("results", len(matches)),
	)

	return matches, nil
}

// Reset deletes all entries and un-fixes the index dimension.
func (s *PGVectorStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The embeddings table is dropped rather than cleared so the next
	// write can fix a fresh dimension.
	for _, stmt := range []string{
		`DROP TABLE IF EXISTS chunk_embeddings`,
		`DELETE FROM chunks`,
		`DELETE FROM index_meta`,
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("resetting index: %w", err)
		}
	}

	s.logger.Info("vector index reset")
	return nil
}

// Dimension reports the fixed embedding dimension, 0 when no entry has been
// written since the last reset.
func (s *PGVectorStore) Dimension(ctx context.Context) (int, error) {
	return s.readDimension(ctx)
}

// Count reports the total number of indexed entries.
func (s *PGVectorStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// Sources reports per-document chunk statistics.
func (s *PGVectorStore) Sources(ctx context.Context) ([]vector.SourceStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, source, COUNT(*)
		FROM chunks
		GROUP BY doc_id, source
		ORDER BY source, doc_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var stats []vector.SourceStat
	for rows.Next() {
		var stat vector.SourceStat
		if err := rows.Scan(&stat.DocumentID, &stat.Source, &stat.Chunks); err != nil {
			return nil, fmt.Errorf("scanning source stat: %w", err)
		}
		stats = append(stats, stat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sources: %w", err)
	}

	return stats, nil
}

// Entries returns a document's entries in ordinal order.
func (s *PGVectorStore) Entries(ctx context.Context, documentID string) ([]vector.Entry, error) {
	dim, err := s.readDimension(ctx)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return []vector.Entry{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.ordinal, c.source, c.text, c.context, ce.embedding::text
		FROM chunks c
		INNER JOIN chunk_embeddings ce ON ce.chunk_id = c.id
		WHERE c.doc_id = $1
		ORDER BY c.ordinal
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var entries []vector.Entry
	for rows.Next() {
		e := vector.Entry{DocumentID: documentID}
		var emb string
		if err := rows.Scan(&e.Ordinal, &e.Source, &e.Text, &e.Context, &emb); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		e.Embedding, err = parseVector(emb)
		if err != nil {
			return nil, fmt.Errorf("parsing embedding for chunk %s/%d: %w", documentID, e.Ordinal, err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return entries, nil
}

// Close releases resources held by the store.
func (s *PGVectorStore) Close() error {
	return s.db.Close()
}
