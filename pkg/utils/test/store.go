package testutils

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/foliodocs/folio/pkg/vector"
)

// MockStore is an in-memory vector.Store that records writes and returns
// configurable query results.
type MockStore struct {
	// QueryResults is returned by Query when non-nil, capped at topK.
	QueryResults []vector.Match

	// WriteErr causes Write to fail.
	WriteErr error

	// QueryErr causes Query to fail.
	QueryErr error

	// FixedDim pre-fixes the index dimension, as if an entry of that
	// length had already been written.
	FixedDim int

	mu      sync.Mutex
	dim     int
	entries []vector.Entry
}

// NewMockStore creates a new mock vector store.
func NewMockStore() *MockStore {
	return &MockStore{}
}

func (m *MockStore) dimension() int {
	if m.FixedDim != 0 {
		return m.FixedDim
	}
	return m.dim
}

func (m *MockStore) Write(_ context.Context, entry vector.Entry) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dim := m.dimension()
	if dim == 0 {
		m.dim = len(entry.Embedding)
	} else if len(entry.Embedding) != dim {
		return fmt.Errorf("%w: index dimension %d, embedding dimension %d",
			vector.ErrDimensionMismatch, dim, len(entry.Embedding))
	}

	for i, existing := range m.entries {
		if existing.DocumentID == entry.DocumentID && existing.Ordinal == entry.Ordinal {
			m.entries[i] = entry
			return nil
		}
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MockStore) Query(_ context.Context, _ []float32, topK int) ([]vector.Match, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	if topK <= 0 || len(m.QueryResults) <= topK {
		return m.QueryResults, nil
	}
	return m.QueryResults[:topK], nil
}

func (m *MockStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.dim = 0
	m.FixedDim = 0
	return nil
}

func (m *MockStore) Dimension(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dimension(), nil
}

func (m *MockStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

func (m *MockStore) Sources(_ context.Context) ([]vector.SourceStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stats []vector.SourceStat
	index := make(map[string]int)
	for _, e := range m.entries {
		i, ok := index[e.DocumentID]
		if !ok {
			i = len(stats)
			index[e.DocumentID] = i
			stats = append(stats, vector.SourceStat{DocumentID: e.DocumentID, Source: e.Source})
		}
		stats[i].Chunks++
	}
	return stats, nil
}

func (m *MockStore) Entries(_ context.Context, documentID string) ([]vector.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []vector.Entry
	for _, e := range m.entries {
		if e.DocumentID == documentID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Ordinal < entries[j].Ordinal
	})
	return entries, nil
}

func (m *MockStore) Close() error {
	return nil
}

// Written returns a copy of all stored entries in write order.
func (m *MockStore) Written() []vector.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]vector.Entry, len(m.entries))
	copy(out, m.entries)
	return out
}
