// Package sqlitevec provides a SQLite-backed chunk store using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/vector"
)

// SQLiteVecStore implements vector.Store using SQLite with sqlite-vec.
type SQLiteVecStore struct {
	db     *sql.DB
	logger *zap.Logger

	// mu serializes dimension lifecycle changes (first write, reset).
	mu sync.Mutex
}

// Config holds configuration for the SQLite vec store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string
}

// NewSQLiteVecStore creates a new SQLite chunk store backed by sqlite-vec.
// The vec0 virtual table is created lazily on the first write, which is what
// fixes the index dimension.
func NewSQLiteVecStore(c Config, logger *zap.Logger) (*SQLiteVecStore, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	// Create the chunk metadata table.
	// vec0 virtual tables use integer rowids, so chunk identities
	// (doc_id, ordinal) map to integer rowids through this table.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL DEFAULT '',
			context TEXT NOT NULL DEFAULT '',
			UNIQUE(doc_id, ordinal)
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

	logger.Info("sqlite-vec chunk store initialized",
		zap.String("db_path", c.DBPath),
		zap.String("vec_version", vecVersion),
	)

	return &SQLiteVecStore{
		db:     db,
		logger: logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) ([]byte, error) {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf, nil
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// readDimension reports the fixed index dimension, 0 when unset.
func (s *SQLiteVecStore) readDimension(ctx context.Context) (int, error) {
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
func (s *SQLiteVecStore) ensureDimension(ctx context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.readDimension(ctx)
	if err != nil {
		return err
	}

	if current == 0 {
		createVec := fmt.Sprintf(
			`CREATE VIRTUAL TABLE IF NOT EXISTS chunk_embeddings USING vec0(embedding float[%d] distance_metric=cosine)`,
			dim,
		)
		if _, err := s.db.ExecContext(ctx, createVec); err != nil {
			return fmt.Errorf("creating vec0 table: %w", err)
		}

		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO index_meta(id, dimension) VALUES (0, ?)`, dim,
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
func (s *SQLiteVecStore) Write(ctx context.Context, entry vector.Entry) error {
	if len(entry.Embedding) == 0 {
		return fmt.Errorf("%w: entry %s/%d has an empty embedding",
			vector.ErrDimensionMismatch, entry.DocumentID, entry.Ordinal)
	}

	if err := s.ensureDimension(ctx, len(entry.Embedding)); err != nil {
		return err
	}

	embBlob, err := serializeFloat32(entry.Embedding)
	if err != nil {
		return fmt.Errorf("serializing embedding for chunk %s/%d: %w",
			entry.DocumentID, entry.Ordinal, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Check if the chunk already exists
	var existingRowID int64
	err = tx.QueryRowContext(ctx,
		`SELECT rowid FROM chunks WHERE doc_id = ? AND ordinal = ?`,
		entry.DocumentID, entry.Ordinal,
	).Scan(&existingRowID)

	switch err {
	case nil:
		// Chunk exists: update metadata and embedding, keeping the rowid
		// so the entry retains its insertion slot.
		if _, err := tx.ExecContext(ctx,
			`UPDATE chunks SET source = ?, text = ?, context = ? WHERE rowid = ?`,
			entry.Source, entry.Text, entry.Context, existingRowID,
		); err != nil {
			return fmt.Errorf("updating chunk %s/%d: %w", entry.DocumentID, entry.Ordinal, err)
		}

		// Update embedding in vec0 table via DELETE + INSERT
		// (vec0 does not support UPDATE)
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM chunk_embeddings WHERE rowid = ?`, existingRowID,
		); err != nil {
			return fmt.Errorf("deleting old embedding for chunk %s/%d: %w",
				entry.DocumentID, entry.Ordinal, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunk_embeddings(rowid, embedding) VALUES (?, ?)`,
			existingRowID, embBlob,
		); err != nil {
			return fmt.Errorf("re-inserting embedding for chunk %s/%d: %w",
				entry.DocumentID, entry.Ordinal, err)
		}
	case sql.ErrNoRows:
		// New chunk: insert into the metadata table first to get the rowid
		result, err := tx.ExecContext(ctx,
			`INSERT INTO chunks(doc_id, ordinal, source, text, context) VALUES (?, ?, ?, ?, ?)`,
			entry.DocumentID, entry.Ordinal, entry.Source, entry.Text, entry.Context,
		)
		if err != nil {
			return fmt.Errorf("inserting chunk %s/%d: %w", entry.DocumentID, entry.Ordinal, err)
		}

		rowID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting rowid for chunk %s/%d: %w", entry.DocumentID, entry.Ordinal, err)
		}

		// Insert embedding into vec0 table with matching rowid
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunk_embeddings(rowid, embedding) VALUES (?, ?)`,
			rowID, embBlob,
		); err != nil {
			return fmt.Errorf("inserting embedding for chunk %s/%d: %w",
				entry.DocumentID, entry.Ordinal, err)
		}
	default:
		return fmt.Errorf("checking for existing chunk %s/%d: %w",
			entry.DocumentID, entry.Ordinal, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Query finds the topK most similar chunks to the given embedding.
func (s *SQLiteVecStore) Query(ctx context.Context, embedding []float32, topK int) ([]vector.Match, error) {
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

	queryBlob, err := serializeFloat32(embedding)
	if err != nil {
		return nil, fmt.Errorf("serializing query embedding: %w", err)
	}

	// KNN query via vec0 MATCH, joined back to the metadata table.
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			c.rowid,
			c.doc_id,
			c.ordinal,
			c.source,
			c.text,
			c.context,
			ce.distance
		FROM chunk_embeddings ce
		INNER JOIN chunks c ON c.rowid = ce.rowid
		WHERE ce.embedding MATCH ?
			AND ce.k = ?
		ORDER BY ce.distance
	`, queryBlob, topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	type hit struct {
		match    vector.Match
		rowID    int64
		distance float64
	}

	var hits []hit
	for rows.Next() {
		var h hit
		if err := rows.Scan(
			&h.rowID,
			&h.match.DocumentID,
			&h.match.Ordinal,
			&h.match.Source,
			&h.match.Text,
			&h.match.Context,
			&h.distance,
		); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		// Cosine distance to similarity: exact match scores 1.0
		h.match.Score = float32(1.0 - h.distance)
		hits = append(hits, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	// Equal-distance hits keep insertion order (rowids are monotonic).
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].distance != hits[j].distance {
			return hits[i].distance < hits[j].distance
		}
		return hits[i].rowID < hits[j].rowID
	})

	matches := make([]vector.Match, len(hits))
	for i, h := range hits {
		matches[i] = h.match
	}

	s.logger.Debug("queried sqlite-vec",
		zap.Int("results", len(matches)),
	)

	return matches, nil
}

// Reset deletes all entries and un-fixes the index dimension.
func (s *SQLiteVecStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The vec0 table is dropped rather than cleared so the next write can
	// fix a fresh dimension.
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
func (s *SQLiteVecStore) Dimension(ctx context.Context) (int, error) {
	return s.readDimension(ctx)
}

// Count reports the total number of indexed entries.
func (s *SQLiteVecStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// Sources reports per-document chunk statistics.
func (s *SQLiteVecStore) Sources(ctx context.Context) ([]vector.SourceStat, error) {
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
func (s *SQLiteVecStore) Entries(ctx context.Context, documentID string) ([]vector.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rowid, ordinal, source, text, context
		FROM chunks
		WHERE doc_id = ?
		ORDER BY ordinal
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	// Collect results first so the rows cursor is closed before issuing
	// additional queries (SQLite uses a single connection).
	type chunkRow struct {
		rowID int64
		entry vector.Entry
	}
	var chunkRows []chunkRow

	for rows.Next() {
		cr := chunkRow{entry: vector.Entry{DocumentID: documentID}}
		if err := rows.Scan(&cr.rowID, &cr.entry.Ordinal, &cr.entry.Source, &cr.entry.Text, &cr.entry.Context); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunkRows = append(chunkRows, cr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	rows.Close()

	// Now retrieve embeddings for each chunk
	entries := make([]vector.Entry, 0, len(chunkRows))
	for _, cr := range chunkRows {
		var embBlob []byte
		err := s.db.QueryRowContext(ctx,
			`SELECT embedding FROM chunk_embeddings WHERE rowid = ?`, cr.rowID,
		).Scan(&embBlob)
		if err == nil && len(embBlob) > 0 {
			cr.entry.Embedding, _ = deserializeFloat32(embBlob)
		}

		entries = append(entries, cr.entry)
	}

	return entries, nil
}

// Close releases resources held by the store.
func (s *SQLiteVecStore) Close() error {
	return s.db.Close()
}
