// Package chroma provides a Chroma-backed chunk store over its REST API.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/vector"
)

const (
	// getPageSize is the page size used when scanning the collection.
	getPageSize = 256

	// dimensionKey is the collection metadata key recording the fixed
	// index dimension.
	dimensionKey = "dimension"
)

// ChromaStore implements vector.Store using Chroma's REST API.
type ChromaStore struct {
	baseURL    string
	collection string
	httpClient *http.Client
	logger     *zap.Logger

	// mu serializes dimension lifecycle changes (first write, reset).
	mu sync.Mutex
}

// Config holds configuration for the Chroma store.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// Collection is the collection name holding chunk entries.
	Collection string
}

// NewChromaStore creates a new Chroma chunk store. The collection is created
// lazily on the first write, which is what fixes the index dimension.
func NewChromaStore(c Config, logger *zap.Logger) (*ChromaStore, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}
	if c.Collection == "" {
		return nil, fmt.Errorf("chroma collection is required")
	}

	logger.Info("chroma chunk store initialized",
		zap.String("url", c.URL),
		zap.String("collection", c.Collection),
	)

	return &ChromaStore{
		baseURL:    c.URL,
		collection: c.Collection,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}, nil
}

// collectionsURL is the v2 REST prefix for the default tenant and database.
func (s *ChromaStore) collectionsURL() string {
	return fmt.Sprintf("%s/api/v2/tenants/default_tenant/databases/default_database/collections", s.baseURL)
}

// do sends a JSON request and decodes the response into out when non-nil.
func (s *ChromaStore) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return &statusError{code: resp.StatusCode, body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// statusError reports a non-2xx Chroma response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.code == http.StatusNotFound
}

// collectionInfo looks up the collection by name, returning its ID and fixed
// dimension. A missing collection yields an empty ID and dimension 0.
func (s *ChromaStore) collectionInfo(ctx context.Context) (string, int, error) {
	var collection chromaCollection
	err := s.do(ctx, http.MethodGet, s.collectionsURL()+"/"+s.collection, nil, &collection)
	if err != nil {
		if isNotFound(err) {
			return "", 0, nil
		}
		return "", 0, fmt.Errorf("getting collection %q: %w", s.collection, err)
	}

	return collection.ID, collectionDimension(collection), nil
}

// collectionDimension resolves the fixed dimension from collection metadata,
// falling back to the server-reported dimension for collections created by
// other tools.
func collectionDimension(collection chromaCollection) int {
	if raw, ok := collection.Metadata[dimensionKey]; ok {
		if dim, ok := raw.(float64); ok {
			return int(dim)
		}
	}
	return collection.Dimension
}

// ensureCollection creates the collection on the first write and rejects
// embeddings that disagree with an already fixed dimension.
func (s *ChromaStore) ensureCollection(ctx context.Context, dim int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, current, err := s.collectionInfo(ctx)
	if err != nil {
		return "", err
	}

	if id != "" {
		if current != dim {
			return "", fmt.Errorf("%w: index dimension %d, embedding dimension %d",
				vector.ErrDimensionMismatch, current, dim)
		}
		return id, nil
	}

	createBody := chromaCreateRequest{
		Name: s.collection,
		Metadata: map[string]any{
			dimensionKey: dim,
			"hnsw:space": "cosine",
		},
		GetOrCreate: true,
	}

	var collection chromaCollection
	if err := s.do(ctx, http.MethodPost, s.collectionsURL(), createBody, &collection); err != nil {
		return "", fmt.Errorf("creating collection %q: %w", s.collection, err)
	}

	// get_or_create may have returned a collection fixed by a concurrent
	// writer with a different dimension.
	if existing := collectionDimension(collection); existing != 0 && existing != dim {
		return "", fmt.Errorf("%w: index dimension %d, embedding dimension %d",
			vector.ErrDimensionMismatch, existing, dim)
	}

	s.logger.Info("index dimension fixed", zap.Int("dimension", dim))
	return collection.ID, nil
}

// chunkID derives the deterministic Chroma ID for a chunk, making every
// upsert of the same (document, ordinal) target the same record.
func chunkID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s/%d", documentID, ordinal)
}

// entryFromChroma rebuilds a chunk entry from record metadata and document
// text.
func entryFromChroma(metadata map[string]any, document string) vector.Entry {
	entry := vector.Entry{Text: document}
	if v, ok := metadata["doc_id"].(string); ok {
		entry.DocumentID = v
	}
	if v, ok := metadata["ordinal"].(float64); ok {
		entry.Ordinal = int(v)
	}
	if v, ok := metadata["source"].(string); ok {
		entry.Source = v
	}
	if v, ok := metadata["context"].(string); ok {
		entry.Context = v
	}
	return entry
}

// Write upserts an entry keyed by (DocumentID, Ordinal).
// The first write fixes the index dimension.
func (s *ChromaStore) Write(ctx context.Context, entry vector.Entry) error {
	if len(entry.Embedding) == 0 {
		return fmt.Errorf("%w: entry %s/%d has an empty embedding",
			vector.ErrDimensionMismatch, entry.DocumentID, entry.Ordinal)
	}

	id, err := s.ensureCollection(ctx, len(entry.Embedding))
	if err != nil {
		return err
	}

	reqBody := chromaUpsertRequest{
		IDs:        []string{chunkID(entry.DocumentID, entry.Ordinal)},
		Embeddings: [][]float32{entry.Embedding},
		Metadatas: []map[string]any{{
			"doc_id":  entry.DocumentID,
			"ordinal": entry.Ordinal,
			"source":  entry.Source,
			"context": entry.Context,
		}},
		Documents: []string{entry.Text},
	}

	if err := s.do(ctx, http.MethodPost, s.collectionsURL()+"/"+id+"/upsert", reqBody, nil); err != nil {
		return fmt.Errorf("upserting chunk %s/%d: %w", entry.DocumentID, entry.Ordinal, err)
	}

	return nil
}

// Query finds the topK most similar chunks to the given embedding.
func (s *ChromaStore) Query(ctx context.Context, embedding []float32, topK int) ([]vector.Match, error) {
	if topK <= 0 {
		topK = 10
	}

	id, dim, err := s.collectionInfo(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" || dim == 0 {
		return []vector.Match{}, nil
	}
	if len(embedding) != dim {
		return nil, fmt.Errorf("%w: index dimension %d, query dimension %d",
			vector.ErrDimensionMismatch, dim, len(embedding))
	}

	reqBody := chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"metadatas", "documents", "distances"},
	}

	var queryResp chromaQueryResponse
	if err := s.do(ctx, http.MethodPost, s.collectionsURL()+"/"+id+"/query", reqBody, &queryResp); err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}

	matches := []vector.Match{}

	// Process the first group; we only query with one embedding.
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return matches, nil
	}

	ids := queryResp.IDs[0]
	var distances []float32
	if len(queryResp.Distances) > 0 {
		distances = queryResp.Distances[0]
	}
	var metadatas []map[string]any
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}
	var documents []string
	if len(queryResp.Documents) > 0 {
		documents = queryResp.Documents[0]
	}

	for i := range ids {
		var m vector.Match
		if i < len(metadatas) && metadatas[i] != nil {
			document := ""
			if i < len(documents) {
				document = documents[i]
			}
			m.Entry = entryFromChroma(metadatas[i], document)
		}
		// Cosine distance to similarity: exact match scores 1.0
		if i < len(distances) {
			m.Score = 1 - distances[i]
		}
		matches = append(matches, m)
	}

	s.logger.Debug("queried chroma",
		zap.Int("results", len(matches)),
	)

	return matches, nil
}

// getAll pages through the collection and returns every matching record.
func (s *ChromaStore) getAll(ctx context.Context, id string, where map[string]any, include []string) (chromaGetResponse, error) {
	var all chromaGetResponse

	offset := 0
	for {
		reqBody := chromaGetRequest{
			Where:   where,
			Limit:   getPageSize,
			Offset:  offset,
			Include: include,
		}

		var page chromaGetResponse
		if err := s.do(ctx, http.MethodPost, s.collectionsURL()+"/"+id+"/get", reqBody, &page); err != nil {
			return chromaGetResponse{}, fmt.Errorf("getting records: %w", err)
		}

		all.IDs = append(all.IDs, page.IDs...)
		all.Metadatas = append(all.Metadatas, page.Metadatas...)
		all.Documents = append(all.Documents, page.Documents...)
		all.Embeddings = append(all.Embeddings, page.Embeddings...)

		if len(page.IDs) < getPageSize {
			return all, nil
		}
		offset += len(page.IDs)
	}
}

// Reset deletes the collection, un-fixing the index dimension.
func (s *ChromaStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.do(ctx, http.MethodDelete, s.collectionsURL()+"/"+s.collection, nil, nil)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("deleting collection %q: %w", s.collection, err)
	}

	s.logger.Info("vector index reset")
	return nil
}

// Dimension reports the fixed embedding dimension, 0 when no entry has been
// written since the last reset.
func (s *ChromaStore) Dimension(ctx context.Context) (int, error) {
	_, dim, err := s.collectionInfo(ctx)
	return dim, err
}

// Count reports the total number of indexed entries.
func (s *ChromaStore) Count(ctx context.Context) (int, error) {
	id, _, err := s.collectionInfo(ctx)
	if err != nil {
		return 0, err
	}
	if id == "" {
		return 0, nil
	}

	var count int
	if err := s.do(ctx, http.MethodGet, s.collectionsURL()+"/"+id+"/count", nil, &count); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}

	return count, nil
}

// Sources reports per-document chunk statistics.
func (s *ChromaStore) Sources(ctx context.Context) ([]vector.SourceStat, error) {
	id, _, err := s.collectionInfo(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return []vector.SourceStat{}, nil
	}

	records, err := s.getAll(ctx, id, nil, []string{"metadatas"})
	if err != nil {
		return nil, err
	}

	byDoc := make(map[string]*vector.SourceStat)
	for _, metadata := range records.Metadatas {
		entry := entryFromChroma(metadata, "")
		stat, ok := byDoc[entry.DocumentID]
		if !ok {
			stat = &vector.SourceStat{DocumentID: entry.DocumentID, Source: entry.Source}
			byDoc[entry.DocumentID] = stat
		}
		stat.Chunks++
	}

	stats := make([]vector.SourceStat, 0, len(byDoc))
	for _, stat := range byDoc {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Source != stats[j].Source {
			return stats[i].Source < stats[j].Source
		}
		return stats[i].DocumentID < stats[j].DocumentID
	})

	return stats, nil
}

// Entries returns a document's entries in ordinal order.
func (s *ChromaStore) Entries(ctx context.Context, documentID string) ([]vector.Entry, error) {
	id, _, err := s.collectionInfo(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return []vector.Entry{}, nil
	}

	where := map[string]any{"doc_id": documentID}
	records, err := s.getAll(ctx, id, where, []string{"metadatas", "documents", "embeddings"})
	if err != nil {
		return nil, err
	}

	entries := make([]vector.Entry, 0, len(records.IDs))
	for i := range records.IDs {
		var metadata map[string]any
		if i < len(records.Metadatas) {
			metadata = records.Metadatas[i]
		}
		document := ""
		if i < len(records.Documents) {
			document = records.Documents[i]
		}

		entry := entryFromChroma(metadata, document)
		if i < len(records.Embeddings) {
			entry.Embedding = records.Embeddings[i]
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Ordinal < entries[j].Ordinal
	})

	return entries, nil
}

// Close releases resources held by the store.
func (s *ChromaStore) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}
