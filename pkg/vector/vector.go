// Package vector provides the chunk index interface and its storage backends.
package vector

import "context"

// Entry is one indexed chunk: identity, attribution metadata, the text
// that was embedded, and the embedding itself.
type Entry struct {
	// DocumentID identifies the owning document.
	DocumentID string

	// Ordinal is the chunk's 0-based position within the document.
	Ordinal int

	// Source is the document's corpus-relative path, kept for citations.
	Source string

	// Text is the raw chunk text.
	Text string

	// Context is the generated situating blurb; empty when generation
	// was skipped or degraded.
	Context string

	// Embedding is the vector representation of context + text.
	Embedding []float32
}

// Match is a query hit with its similarity score.
type Match struct {
	Entry

	// Score is the cosine similarity, normalized so 1.0 is an exact match.
	Score float32
}

// SourceStat summarizes the indexed chunks of one document.
type SourceStat struct {
	DocumentID string
	Source     string
	Chunks     int
}

// Store handles persistence and nearest-neighbor retrieval of chunk
// embeddings. The first Write fixes the index dimension; Reset un-fixes it.
type Store interface {
	// Write upserts an entry keyed by (DocumentID, Ordinal). Returns
	// ErrDimensionMismatch when the embedding length differs from the
	// fixed index dimension.
	Write(ctx context.Context, entry Entry) error

	// Query returns up to topK matches ordered by similarity descending.
	// Exact ties keep insertion order. An empty index yields an empty
	// result, not an error.
	Query(ctx context.Context, embedding []float32, topK int) ([]Match, error)

	// Reset deletes every entry and un-fixes the index dimension.
	// Resetting an empty index is a no-op.
	Reset(ctx context.Context) error

	// Dimension reports the fixed embedding dimension, 0 when no entry
	// has been written since the last Reset.
	Dimension(ctx context.Context) (int, error)

	// Count reports the total number of indexed entries.
	Count(ctx context.Context) (int, error)

	// Sources reports per-document chunk statistics.
	Sources(ctx context.Context) ([]SourceStat, error)

	// Entries returns a document's entries in ordinal order.
	Entries(ctx context.Context, documentID string) ([]Entry, error)

	// Close releases any resources held by the store.
	Close() error
}
