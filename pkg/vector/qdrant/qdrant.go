// Package qdrant provides a Qdrant-backed chunk store over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/vector"
)

const (
	// DefaultPort is the Qdrant gRPC port.
	DefaultPort = 6334

	// scrollPageSize is the page size used when scanning the collection.
	scrollPageSize = 256
)

// QdrantStore implements vector.Store using a Qdrant collection.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	logger     *zap.Logger

	// mu serializes dimension lifecycle changes (first write, reset).
	mu sync.Mutex
}

// Config holds configuration for the Qdrant store.
type Config struct {
	// Addr is the host:port of the Qdrant gRPC endpoint.
	Addr string

	// APIKey is the optional Qdrant API key.
	APIKey string

	// Collection is the collection name holding chunk points.
	Collection string
}

// NewQdrantStore creates a new Qdrant chunk store. The collection is created
// lazily on the first write, which is what fixes the index dimension.
func NewQdrantStore(c Config, logger *zap.Logger) (*QdrantStore, error) {
	if c.Addr == "" {
		return nil, fmt.Errorf("qdrant address is required")
	}
	if c.Collection == "" {
		return nil, fmt.Errorf("qdrant collection is required")
	}

	host, port, err := splitAddr(c.Addr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	logger.Info("qdrant chunk store initialized",
		zap.String("addr", c.Addr),
		zap.String("collection", c.Collection),
	)

	return &QdrantStore{
		client:     client,
		collection: c.Collection,
		logger:     logger,
	}, nil
}

// splitAddr parses host:port, defaulting the port when absent.
func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, DefaultPort, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, nil
}

// pointID derives the deterministic point UUID for a chunk, making every
// upsert of the same (document, ordinal) target the same point.
func pointID(documentID string, ordinal int) string {
	key := fmt.Sprintf("folio://chunk/%s/%d", documentID, ordinal)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// entryFromPayload rebuilds a chunk entry from a point payload.
func entryFromPayload(payload map[string]*qdrant.Value) vector.Entry {
	return vector.Entry{
		DocumentID: payload["doc_id"].GetStringValue(),
		Ordinal:    int(payload["ordinal"].GetIntegerValue()),
		Source:     payload["source"].GetStringValue(),
		Text:       payload["text"].GetStringValue(),
		Context:    payload["context"].GetStringValue(),
	}
}

// collectionDimension reports the collection's vector size, 0 when the
// collection does not exist.
func (s *QdrantStore) collectionDimension(ctx context.Context) (int, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("checking collection: %w", err)
	}
	if !exists {
		return 0, nil
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("reading collection info: %w", err)
	}

	size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	return int(size), nil
}

// ensureCollection creates the collection on the first write and rejects
// embeddings that disagree with an already fixed dimension.
func (s *QdrantStore) ensureCollection(ctx context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.collectionDimension(ctx)
	if err != nil {
		return err
	}

	if current == 0 {
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("creating collection: %w", err)
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
func (s *QdrantStore) Write(ctx context.Context, entry vector.Entry) error {
	if len(entry.Embedding) == 0 {
		return fmt.Errorf("%w: entry %s/%d has an empty embedding",
			vector.ErrDimensionMismatch, entry.DocumentID, entry.Ordinal)
	}

	if err := s.ensureCollection(ctx, len(entry.Embedding)); err != nil {
		return err
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(pointID(entry.DocumentID, entry.Ordinal)),
			Vectors: qdrant.NewVectors(entry.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"doc_id":  entry.DocumentID,
				"ordinal": entry.Ordinal,
				"source":  entry.Source,
				"text":    entry.Text,
				"context": entry.Context,
			}),
		}},
	})
	if err != nil {
		return fmt.Errorf("upserting chunk %s/%d: %w", entry.DocumentID, entry.Ordinal, err)
	}

	return nil
}

// Query finds the topK most similar chunks to the given embedding.
func (s *QdrantStore) Query(ctx context.Context, embedding []float32, topK int) ([]vector.Match, error) {
	if topK <= 0 {
		topK = 10
	}

	dim, err := s.collectionDimension(ctx)
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

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}

	matches := make([]vector.Match, 0, len(points))
	for _, p := range points {
		m := vector.Match{Entry: entryFromPayload(p.GetPayload())}
		// Qdrant reports cosine similarity directly: exact match scores 1.0
		m.Score = p.GetScore()
		matches = append(matches, m)
	}

	s.logger.Debug("queried qdrant",
		zap.Int("results", len(matches)),
	)

	return matches, nil
}

// scrollAll pages through the collection and returns every matching point.
func (s *QdrantStore) scrollAll(ctx context.Context, filter *qdrant.Filter, withVectors bool) ([]*qdrant.RetrievedPoint, error) {
	points := s.client.GetPointsClient()

	var (
		out    []*qdrant.RetrievedPoint
		offset *qdrant.PointId
	)
	for {
		req := &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Filter:         filter,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		}
		if withVectors {
			req.WithVectors = qdrant.NewWithVectors(true)
		}

		resp, err := points.Scroll(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("scrolling points: %w", err)
		}

		out = append(out, resp.GetResult()...)

		offset = resp.GetNextPageOffset()
		if offset == nil {
			return out, nil
		}
	}
}

// Reset deletes the collection, un-fixing the index dimension.
func (s *QdrantStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("checking collection: %w", err)
	}
	if !exists {
		return nil
	}

	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}

	s.logger.Info("vector index reset")
	return nil
}

// Dimension reports the fixed embedding dimension, 0 when no entry has been
// written since the last reset.
func (s *QdrantStore) Dimension(ctx context.Context) (int, error) {
	return s.collectionDimension(ctx)
}

// Count reports the total number of indexed entries.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	dim, err := s.collectionDimension(ctx)
	if err != nil {
		return 0, err
	}
	if dim == 0 {
		return 0, nil
	}

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}

	return int(count), nil
}

// Sources reports per-document chunk statistics.
func (s *QdrantStore) Sources(ctx context.Context) ([]vector.SourceStat, error) {
	dim, err := s.collectionDimension(ctx)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return []vector.SourceStat{}, nil
	}

	points, err := s.scrollAll(ctx, nil, false)
	if err != nil {
		return nil, err
	}

	byDoc := make(map[string]*vector.SourceStat)
	for _, p := range points {
		entry := entryFromPayload(p.GetPayload())
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
func (s *QdrantStore) Entries(ctx context.Context, documentID string) ([]vector.Entry, error) {
	dim, err := s.collectionDimension(ctx)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return []vector.Entry{}, nil
	}

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch("doc_id", documentID)},
	}
	points, err := s.scrollAll(ctx, filter, true)
	if err != nil {
		return nil, err
	}

	entries := make([]vector.Entry, 0, len(points))
	for _, p := range points {
		entry := entryFromPayload(p.GetPayload())
		entry.Embedding = p.GetVectors().GetVector().GetData()
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Ordinal < entries[j].Ordinal
	})

	return entries, nil
}

// Close releases resources held by the store.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}
